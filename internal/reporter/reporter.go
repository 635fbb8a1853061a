package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	RunStarted(info RunStartInfo)
	ThumbnailProgress(progress ThumbnailProgress)
	Matched(result MatchResult)
	Unmatched(result UnmatchResult)
	RunComplete(summary RunSummary)
	ManifestStarted(info ManifestStartInfo)
	ManifestProgress(progress ManifestProgress)
	MediaResult(result MediaResult)
	ManifestComplete(summary ManifestSummary)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)            {}
func (NullReporter) RunStarted(RunStartInfo)             {}
func (NullReporter) ThumbnailProgress(ThumbnailProgress) {}
func (NullReporter) Matched(MatchResult)                 {}
func (NullReporter) Unmatched(UnmatchResult)             {}
func (NullReporter) RunComplete(RunSummary)              {}
func (NullReporter) ManifestStarted(ManifestStartInfo)   {}
func (NullReporter) ManifestProgress(ManifestProgress)   {}
func (NullReporter) MediaResult(MediaResult)             {}
func (NullReporter) ManifestComplete(ManifestSummary)    {}
func (NullReporter) Warning(string)                      {}
func (NullReporter) Error(ReporterError)                 {}
func (NullReporter) OperationComplete(string)            {}
func (NullReporter) Verbose(string)                      {}

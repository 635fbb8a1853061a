package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	for _, r := range c.reporters {
		r.Hardware(summary)
	}
}

func (c *CompositeReporter) RunStarted(info RunStartInfo) {
	for _, r := range c.reporters {
		r.RunStarted(info)
	}
}

func (c *CompositeReporter) ThumbnailProgress(progress ThumbnailProgress) {
	for _, r := range c.reporters {
		r.ThumbnailProgress(progress)
	}
}

func (c *CompositeReporter) Matched(result MatchResult) {
	for _, r := range c.reporters {
		r.Matched(result)
	}
}

func (c *CompositeReporter) Unmatched(result UnmatchResult) {
	for _, r := range c.reporters {
		r.Unmatched(result)
	}
}

func (c *CompositeReporter) RunComplete(summary RunSummary) {
	for _, r := range c.reporters {
		r.RunComplete(summary)
	}
}

func (c *CompositeReporter) ManifestStarted(info ManifestStartInfo) {
	for _, r := range c.reporters {
		r.ManifestStarted(info)
	}
}

func (c *CompositeReporter) ManifestProgress(progress ManifestProgress) {
	for _, r := range c.reporters {
		r.ManifestProgress(progress)
	}
}

func (c *CompositeReporter) MediaResult(result MediaResult) {
	for _, r := range c.reporters {
		r.MediaResult(result)
	}
}

func (c *CompositeReporter) ManifestComplete(summary ManifestSummary) {
	for _, r := range c.reporters {
		r.ManifestComplete(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}

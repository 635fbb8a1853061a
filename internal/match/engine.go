// Package match decides which video each thumbnail belongs to.
//
// The Engine scores a thumbnail against the candidate videos of its
// directory and binds it to at most one of them. Bound videos are consumed
// for the rest of the run, which keeps the assignment one-to-one across the
// whole tree.
package match

import (
	"context"
	"errors"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/discovery"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/frame"
	"github.com/five82/thumbsync/internal/logging"
	"github.com/five82/thumbsync/internal/similarity"
)

// State is the terminal state of a thumbnail.
type State int

const (
	// StateUnmatched means no candidate cleared the threshold.
	StateUnmatched State = iota
	// StateMatched means the thumbnail was bound to a video.
	StateMatched
)

// String returns a human-readable name for the state.
func (s State) String() string {
	if s == StateMatched {
		return "matched"
	}
	return "unmatched"
}

// Score is one thumbnail/candidate comparison.
type Score struct {
	Candidate  string
	Similarity float64
	Difference float64
}

// Outcome is the result of matching one thumbnail.
type Outcome struct {
	Thumbnail  string
	State      State
	Video      string  // bound video, empty unless matched
	Similarity float64 // similarity of the bound video

	// BestSimilarity and BestCandidate describe the highest positive score
	// seen. BestCandidate is empty when nothing scored above zero.
	BestSimilarity float64
	BestCandidate  string

	// Counters cover unconsumed candidates only, up to the decision point.
	Considered    int // candidates whose first frame decoded
	Undecodable   int // candidates skipped because no frame could be read
	RatioRejected int // candidates failing the aspect gate, probed or decoded
	Consumed      int // candidates already bound to an earlier thumbnail
}

// Matched reports whether the thumbnail was bound.
func (o Outcome) Matched() bool {
	return o.State == StateMatched
}

// Observer receives every scored pair in enumeration order. thumb and frame
// are the decoded images; the frame has not been resized.
type Observer func(thumb discovery.Thumbnail, score Score, thumbImg, frameImg image.Image)

// Options configures an Engine.
type Options struct {
	Threshold      float64
	RatioTolerance float64
	Strategy       config.Strategy
	// Workers bounds concurrent candidate evaluation for one thumbnail.
	Workers  int
	Observer Observer
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		Threshold:      config.DefaultThreshold,
		RatioTolerance: config.DefaultRatioTolerance,
		Strategy:       config.DefaultStrategy,
		Workers:        config.DefaultWorkers,
	}
}

// Engine binds thumbnails to videos. The consumed set is owned by the
// engine and only mutated from Match, which must not be called concurrently.
type Engine struct {
	decoder  frame.Decoder
	scorer   similarity.Scorer
	opts     Options
	consumed *ConsumedSet
}

// NewEngine creates an engine with an empty consumed set.
func NewEngine(decoder frame.Decoder, scorer similarity.Scorer, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Strategy == "" {
		opts.Strategy = config.DefaultStrategy
	}
	return &Engine{
		decoder:  decoder,
		scorer:   scorer,
		opts:     opts,
		consumed: NewConsumedSet(),
	}
}

// Consumed returns a sorted snapshot of the bound videos.
func (e *Engine) Consumed() []string {
	return e.consumed.Sorted()
}

// IsConsumed reports whether path has been bound to a thumbnail.
func (e *Engine) IsConsumed(path string) bool {
	return e.consumed.Contains(path)
}

type evalStatus int

const (
	evalUndecodable evalStatus = iota
	evalRatioRejected
	evalScored
)

// evaluation is the independent, side-effect free part of scoring one
// candidate.
type evaluation struct {
	status evalStatus
	score  Score
	frame  image.Image
}

// Match decides the outcome for thumb given its candidate videos in
// enumeration order. An error means the thumbnail itself could not be
// processed; candidate failures only exclude that candidate.
//
// Consumed candidates are still scored so the unmatched diagnostic can name
// them as the closest video, but they are never bound again.
func (e *Engine) Match(ctx context.Context, thumb discovery.Thumbnail, candidates []string) (Outcome, error) {
	out := Outcome{Thumbnail: thumb.Path, State: StateUnmatched}

	thumbImg, err := e.decoder.DecodeImage(thumb.Path)
	if err != nil {
		return out, err
	}

	if e.opts.Workers > 1 && len(candidates) > 1 {
		evals, err := e.evaluateAll(ctx, thumbImg, candidates)
		if err != nil {
			return out, err
		}
		next := func(i int) (evaluation, error) { return evals[i], nil }
		return e.decide(thumb, thumbImg, candidates, next, out)
	}

	next := func(i int) (evaluation, error) {
		if err := ctx.Err(); err != nil {
			return evaluation{}, thserrors.NewCancelledError()
		}
		return e.evaluate(ctx, thumbImg, candidates[i])
	}
	return e.decide(thumb, thumbImg, candidates, next, out)
}

// decide walks evaluations in enumeration order and applies the strategy.
// Evaluations are pulled lazily so the sequential path stops decoding once a
// first match is found.
func (e *Engine) decide(thumb discovery.Thumbnail, thumbImg image.Image, candidates []string, next func(int) (evaluation, error), out Outcome) (Outcome, error) {
	chosen := -1
	var chosenScore Score

	for i, candidate := range candidates {
		ev, err := next(i)
		if err != nil {
			return out, err
		}

		consumed := e.consumed.Contains(candidate)
		if consumed {
			out.Consumed++
		}

		switch ev.status {
		case evalUndecodable:
			if !consumed {
				out.Undecodable++
			}
			continue
		case evalRatioRejected:
			if !consumed {
				out.Considered++
				out.RatioRejected++
			}
			continue
		}
		if !consumed {
			out.Considered++
		}

		if e.opts.Observer != nil {
			e.opts.Observer(thumb, ev.score, thumbImg, ev.frame)
		}

		if ev.score.Similarity > out.BestSimilarity {
			out.BestSimilarity = ev.score.Similarity
			out.BestCandidate = ev.score.Candidate
		}

		if consumed || !similarity.Accept(ev.score.Similarity, e.opts.Threshold) {
			continue
		}
		if e.opts.Strategy == config.StrategyFirst {
			chosen, chosenScore = i, ev.score
			break
		}
		if chosen < 0 || ev.score.Similarity > chosenScore.Similarity {
			chosen, chosenScore = i, ev.score
		}
	}

	if chosen < 0 {
		logging.Debug("thumbnail unmatched", "thumbnail", thumb.Path,
			"best", out.BestSimilarity, "candidate", out.BestCandidate)
		return out, nil
	}

	e.consumed.Add(candidates[chosen])
	out.State = StateMatched
	out.Video = candidates[chosen]
	out.Similarity = chosenScore.Similarity
	logging.Debug("thumbnail matched", "thumbnail", thumb.Path,
		"video", out.Video, "similarity", out.Similarity)
	return out, nil
}

// evaluate decodes, gates and scores one candidate. Only cancellation is
// returned as an error.
//
// When the decoder can probe, the aspect gate runs on the probed size first
// so mismatched candidates are never decoded. The decoded frame is gated
// again since it is what gets scored.
func (e *Engine) evaluate(ctx context.Context, thumbImg image.Image, candidate string) (evaluation, error) {
	if p, ok := e.decoder.(frame.Prober); ok {
		size, err := p.DisplaySize(ctx, candidate)
		if err != nil {
			return undecodable(candidate, err)
		}
		if !size.Empty() && !similarity.SameAspect(thumbImg, size, e.opts.RatioTolerance) {
			return evaluation{status: evalRatioRejected}, nil
		}
	}

	frameImg, err := e.decoder.FirstFrame(ctx, candidate)
	if err != nil {
		return undecodable(candidate, err)
	}

	if !similarity.SameAspect(thumbImg, frameImg, e.opts.RatioTolerance) {
		return evaluation{status: evalRatioRejected}, nil
	}

	sim, err := e.scorer.Similarity(thumbImg, frameImg)
	if err != nil {
		logging.Debug("candidate could not be scored", "video", candidate, "error", err)
		return evaluation{status: evalUndecodable}, nil
	}

	ev := evaluation{
		status: evalScored,
		score: Score{
			Candidate:  candidate,
			Similarity: sim,
			Difference: similarity.Difference(sim),
		},
	}
	if e.opts.Observer != nil {
		ev.frame = frameImg
	}
	return ev, nil
}

// undecodable classifies a probe or decode failure. Cancellation aborts the
// thumbnail; anything else only excludes the candidate.
func undecodable(candidate string, err error) (evaluation, error) {
	if thserrors.IsCancelled(err) || errors.Is(err, context.Canceled) {
		return evaluation{}, thserrors.NewCancelledError()
	}
	logging.Debug("candidate undecodable", "video", candidate, "error", err)
	return evaluation{status: evalUndecodable}, nil
}

// evaluateAll evaluates every candidate with bounded concurrency. Results
// are indexed by enumeration position; nothing shared is mutated.
func (e *Engine) evaluateAll(ctx context.Context, thumbImg image.Image, candidates []string) ([]evaluation, error) {
	evals := make([]evaluation, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return thserrors.NewCancelledError()
			}
			ev, err := e.evaluate(gctx, thumbImg, c)
			if err != nil {
				return err
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

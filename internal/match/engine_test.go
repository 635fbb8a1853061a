package match

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/five82/thumbsync/internal/config"
	"github.com/five82/thumbsync/internal/discovery"
	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/frame"
)

// fakeImage is an image identified by name with fixed bounds.
type fakeImage struct {
	id   string
	w, h int
}

func (f fakeImage) ColorModel() color.Model { return color.RGBAModel }
func (f fakeImage) Bounds() image.Rectangle { return image.Rect(0, 0, f.w, f.h) }
func (f fakeImage) At(x, y int) color.Color { return color.RGBA{} }

// fakeDecoder serves fakeImages by path; paths missing from frames fail to
// decode.
type fakeDecoder struct {
	thumbs map[string]fakeImage
	frames map[string]fakeImage

	mu    sync.Mutex
	calls []string
}

func (d *fakeDecoder) DecodeImage(path string) (image.Image, error) {
	img, ok := d.thumbs[path]
	if !ok {
		return nil, thserrors.NewDecodeError(path, errors.New("missing"))
	}
	return img, nil
}

func (d *fakeDecoder) FirstFrame(ctx context.Context, path string) (image.Image, error) {
	d.mu.Lock()
	d.calls = append(d.calls, path)
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, thserrors.NewCancelledError()
	}
	img, ok := d.frames[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", frame.ErrNoFrame, path)
	}
	return img, nil
}

// fakeScorer looks up similarities by (thumbnail id, frame id).
type fakeScorer struct {
	sims  map[[2]string]float64
	mu    sync.Mutex
	pairs [][2]string
}

func (s *fakeScorer) Similarity(thumb, fr image.Image) (float64, error) {
	key := [2]string{thumb.(fakeImage).id, fr.(fakeImage).id}
	s.mu.Lock()
	s.pairs = append(s.pairs, key)
	s.mu.Unlock()
	return s.sims[key], nil
}

// corpus builds a decoder and scorer from a compact description.
type corpus struct {
	dec *fakeDecoder
	sc  *fakeScorer
}

func newCorpus() *corpus {
	return &corpus{
		dec: &fakeDecoder{thumbs: map[string]fakeImage{}, frames: map[string]fakeImage{}},
		sc:  &fakeScorer{sims: map[[2]string]float64{}},
	}
}

func (c *corpus) thumb(path string, w, h int) discovery.Thumbnail {
	c.dec.thumbs[path] = fakeImage{id: path, w: w, h: h}
	return discovery.Thumbnail{Path: path}
}

func (c *corpus) video(path string, w, h int) {
	c.dec.frames[path] = fakeImage{id: path, w: w, h: h}
}

// difference sets the score so that 1 - similarity == diff.
func (c *corpus) difference(thumb, video string, diff float64) {
	c.sc.sims[[2]string{thumb, video}] = 1 - diff
}

func opts(threshold float64) Options {
	o := DefaultOptions()
	o.Threshold = threshold
	return o
}

func TestMatchFirstAcceptable(t *testing.T) {
	// A_thumb matches A strongly, B is unrelated.
	c := newCorpus()
	th := c.thumb("A_thumb.jpg", 160, 120)
	c.video("A.mp4", 640, 480)
	c.video("B.mp4", 640, 480)
	c.difference("A_thumb.jpg", "A.mp4", 0.008)
	c.difference("A_thumb.jpg", "B.mp4", 0.61)

	e := NewEngine(c.dec, c.sc, opts(0.05))
	out, err := e.Match(context.Background(), th, []string{"A.mp4", "B.mp4"})
	if err != nil {
		t.Fatal(err)
	}

	if !out.Matched() || out.Video != "A.mp4" {
		t.Fatalf("outcome = %+v, want matched to A.mp4", out)
	}
	if !e.IsConsumed("A.mp4") {
		t.Error("A.mp4 not consumed")
	}
	// Stops at the first acceptable candidate.
	if len(c.dec.calls) != 1 {
		t.Errorf("decoded %v, want only A.mp4", c.dec.calls)
	}
}

func TestMatchConsumedVideoUnavailableToLaterThumbnail(t *testing.T) {
	c := newCorpus()
	first := c.thumb("C_thumb.jpg", 160, 90)
	second := c.thumb("D_thumb.jpg", 160, 90)
	c.video("E.mp4", 1920, 1080)
	c.difference("C_thumb.jpg", "E.mp4", 0.02)
	c.difference("D_thumb.jpg", "E.mp4", 0.02)

	e := NewEngine(c.dec, c.sc, opts(0.05))
	ctx := context.Background()

	a, err := e.Match(ctx, first, []string{"E.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Match(ctx, second, []string{"E.mp4"})
	if err != nil {
		t.Fatal(err)
	}

	if !a.Matched() || a.Video != "E.mp4" {
		t.Errorf("first = %+v, want matched to E.mp4", a)
	}
	if b.Matched() {
		t.Errorf("second = %+v, want unmatched", b)
	}
	if b.Consumed != 1 {
		t.Errorf("second.Consumed = %d, want 1", b.Consumed)
	}
	if b.BestCandidate != "E.mp4" || math.Abs(b.BestSimilarity-0.98) > 1e-9 {
		t.Errorf("second best = %f %q, want 0.98 E.mp4", b.BestSimilarity, b.BestCandidate)
	}
	if got := e.Consumed(); len(got) != 1 || got[0] != "E.mp4" {
		t.Errorf("Consumed() = %v, want [E.mp4]", got)
	}
}

func TestMatchAspectGateSkipsScoring(t *testing.T) {
	c := newCorpus()
	th := c.thumb("wide.jpg", 160, 90)
	c.video("square.mp4", 640, 480)
	c.difference("wide.jpg", "square.mp4", 0)

	o := opts(0.05)
	o.RatioTolerance = 0.05
	e := NewEngine(c.dec, c.sc, o)
	out, err := e.Match(context.Background(), th, []string{"square.mp4"})
	if err != nil {
		t.Fatal(err)
	}

	if out.Matched() {
		t.Error("ratio-mismatched candidate must never match")
	}
	if len(c.sc.pairs) != 0 {
		t.Errorf("scorer called for %v", c.sc.pairs)
	}
	if out.RatioRejected != 1 || out.Considered != 1 {
		t.Errorf("RatioRejected=%d Considered=%d, want 1/1", out.RatioRejected, out.Considered)
	}
}

// sizedDecoder adds stream sizes to fakeDecoder. Paths missing from sizes
// report no stream size.
type sizedDecoder struct {
	*fakeDecoder
	sizes  map[string]image.Rectangle
	sizeCalls int
}

func (d *sizedDecoder) DisplaySize(ctx context.Context, path string) (image.Rectangle, error) {
	d.sizeCalls++
	r, ok := d.sizes[path]
	if !ok {
		return image.Rectangle{}, fmt.Errorf("%w: %s", frame.ErrNoFrame, path)
	}
	return r, nil
}

func TestMatchStreamAspectSkipsDecode(t *testing.T) {
	c := newCorpus()
	th := c.thumb("wide.jpg", 160, 90)
	c.video("rotated.mp4", 1920, 1080)
	c.video("wide.mp4", 1920, 1080)
	c.difference("wide.jpg", "rotated.mp4", 0)
	c.difference("wide.jpg", "wide.mp4", 0.001)
	dec := &sizedDecoder{fakeDecoder: c.dec, sizes: map[string]image.Rectangle{
		"rotated.mp4": image.Rect(0, 0, 1080, 1920),
		"wide.mp4":    image.Rect(0, 0, 1920, 1080),
	}}

	e := NewEngine(dec, c.sc, opts(0.05))
	out, err := e.Match(context.Background(), th, []string{"rotated.mp4", "unsized.mp4", "wide.mp4"})
	if err != nil {
		t.Fatal(err)
	}

	if out.Video != "wide.mp4" {
		t.Errorf("Video = %q, want wide.mp4", out.Video)
	}
	if out.RatioRejected != 1 || out.Undecodable != 1 {
		t.Errorf("RatioRejected=%d Undecodable=%d, want 1/1", out.RatioRejected, out.Undecodable)
	}
	if len(dec.calls) != 1 || dec.calls[0] != "wide.mp4" {
		t.Errorf("decoded %v, want only wide.mp4", dec.calls)
	}
}

func TestMatchUnknownStreamSizeFallsBackToFrame(t *testing.T) {
	c := newCorpus()
	th := c.thumb("wide.jpg", 160, 90)
	c.video("clip.mp4", 1920, 1080)
	c.difference("wide.jpg", "clip.mp4", 0)
	dec := &sizedDecoder{fakeDecoder: c.dec, sizes: map[string]image.Rectangle{"clip.mp4": {}}}

	e := NewEngine(dec, c.sc, opts(0.05))
	out, err := e.Match(context.Background(), th, []string{"clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Matched() || dec.sizeCalls != 1 {
		t.Errorf("matched=%v sizeCalls=%d, want true/1", out.Matched(), dec.sizeCalls)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	c := newCorpus()
	th := c.thumb("lonely.jpg", 100, 100)

	e := NewEngine(c.dec, c.sc, DefaultOptions())
	out, err := e.Match(context.Background(), th, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Matched() {
		t.Error("thumbnail with no candidates matched")
	}
	if out.BestSimilarity != 0 || out.BestCandidate != "" {
		t.Errorf("best = %f %q, want 0 and none", out.BestSimilarity, out.BestCandidate)
	}
}

func TestMatchUndecodableCandidates(t *testing.T) {
	c := newCorpus()
	th := c.thumb("t.jpg", 160, 90)
	c.video("good.mp4", 1920, 1080)
	c.difference("t.jpg", "good.mp4", 0.5)

	e := NewEngine(c.dec, c.sc, DefaultOptions())
	out, err := e.Match(context.Background(), th, []string{"broken.mp4", "good.mp4", "empty.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Undecodable != 2 {
		t.Errorf("Undecodable = %d, want 2", out.Undecodable)
	}
	if out.Considered != 1 {
		t.Errorf("Considered = %d, want 1", out.Considered)
	}
	if out.BestCandidate != "good.mp4" || out.BestSimilarity != 0.5 {
		t.Errorf("best = %f %q", out.BestSimilarity, out.BestCandidate)
	}
}

func TestMatchNegativeScoresReportNone(t *testing.T) {
	c := newCorpus()
	th := c.thumb("t.jpg", 160, 90)
	c.video("inverse.mp4", 1920, 1080)
	c.difference("t.jpg", "inverse.mp4", 1.8)

	e := NewEngine(c.dec, c.sc, DefaultOptions())
	out, err := e.Match(context.Background(), th, []string{"inverse.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if out.BestCandidate != "" {
		t.Errorf("BestCandidate = %q, want none", out.BestCandidate)
	}
}

func TestMatchThumbnailDecodeFailure(t *testing.T) {
	c := newCorpus()
	e := NewEngine(c.dec, c.sc, DefaultOptions())
	_, err := e.Match(context.Background(), discovery.Thumbnail{Path: "missing.jpg"}, []string{"a.mp4"})
	if !thserrors.IsKind(err, thserrors.KindDecode) {
		t.Errorf("error = %v, want Decode kind", err)
	}
}

func TestMatchCancelled(t *testing.T) {
	c := newCorpus()
	th := c.thumb("t.jpg", 160, 90)
	c.video("a.mp4", 1920, 1080)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(c.dec, c.sc, DefaultOptions())
	_, err := e.Match(ctx, th, []string{"a.mp4"})
	if !thserrors.IsCancelled(err) {
		t.Errorf("error = %v, want cancelled", err)
	}
	if len(e.Consumed()) != 0 {
		t.Error("cancelled match consumed a video")
	}
}

func TestMatchBestStrategy(t *testing.T) {
	c := newCorpus()
	th := c.thumb("t.jpg", 160, 90)
	c.video("ok.mp4", 1920, 1080)
	c.video("better.mp4", 1920, 1080)
	c.video("tie.mp4", 1920, 1080)
	c.difference("t.jpg", "ok.mp4", 0.04)
	c.difference("t.jpg", "better.mp4", 0.01)
	c.difference("t.jpg", "tie.mp4", 0.01)

	candidates := []string{"ok.mp4", "better.mp4", "tie.mp4"}

	first := NewEngine(c.dec, c.sc, opts(0.05))
	out, err := first.Match(context.Background(), th, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if out.Video != "ok.mp4" {
		t.Errorf("first strategy bound %q, want ok.mp4", out.Video)
	}

	o := opts(0.05)
	o.Strategy = config.StrategyBest
	best := NewEngine(c.dec, c.sc, o)
	out, err = best.Match(context.Background(), th, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if out.Video != "better.mp4" {
		t.Errorf("best strategy bound %q, want better.mp4 (earliest of tie)", out.Video)
	}
}

// grid is a directory of n thumbnails and n videos where thumbnail i looks
// like video i and only faintly like the others.
func grid(c *corpus, n int) ([]discovery.Thumbnail, []string) {
	var thumbs []discovery.Thumbnail
	var videos []string
	for i := range n {
		videos = append(videos, fmt.Sprintf("v%02d.mp4", i))
		c.video(videos[i], 1280, 720)
	}
	for i := range n {
		name := fmt.Sprintf("t%02d.jpg", i)
		thumbs = append(thumbs, c.thumb(name, 320, 180))
		for j := range n {
			diff := 0.3 + 0.01*float64((i+j)%7)
			if i == j {
				diff = 0.001 * float64(i%5+1)
			}
			c.difference(name, videos[j], diff)
		}
	}
	return thumbs, videos
}

func runAll(t *testing.T, e *Engine, thumbs []discovery.Thumbnail, videos []string) map[string]string {
	t.Helper()
	got := map[string]string{}
	for _, th := range thumbs {
		out, err := e.Match(context.Background(), th, videos)
		if err != nil {
			t.Fatal(err)
		}
		if out.Matched() {
			got[th.Path] = out.Video
		}
	}
	return got
}

func TestMatchInjective(t *testing.T) {
	c := newCorpus()
	thumbs, videos := grid(c, 12)

	// A permissive threshold lets every thumbnail qualify for every video.
	e := NewEngine(c.dec, c.sc, opts(1.5))
	got := runAll(t, e, thumbs, videos)

	seen := map[string]string{}
	for th, v := range got {
		if prev, ok := seen[v]; ok {
			t.Fatalf("video %s bound to both %s and %s", v, prev, th)
		}
		seen[v] = th
	}
	if len(got) != len(e.Consumed()) {
		t.Errorf("assignments %d != consumed %d", len(got), len(e.Consumed()))
	}
}

func TestMatchThresholdMonotonic(t *testing.T) {
	prev := -1
	for _, threshold := range []float64{0.0005, 0.002, 0.004, 0.01, 0.05} {
		c := newCorpus()
		thumbs, videos := grid(c, 10)
		got := runAll(t, NewEngine(c.dec, c.sc, opts(threshold)), thumbs, videos)
		if len(got) < prev {
			t.Errorf("threshold %f: %d matches, fewer than %d at a stricter threshold", threshold, len(got), prev)
		}
		prev = len(got)
	}
	if prev != 10 {
		t.Errorf("loosest threshold matched %d, want 10", prev)
	}
}

func TestMatchDeterministic(t *testing.T) {
	var runs []map[string]string
	for range 3 {
		c := newCorpus()
		thumbs, videos := grid(c, 8)
		runs = append(runs, runAll(t, NewEngine(c.dec, c.sc, opts(0.9)), thumbs, videos))
	}
	for i := 1; i < len(runs); i++ {
		if fmt.Sprint(runs[i]) != fmt.Sprint(runs[0]) {
			t.Errorf("run %d differs: %v vs %v", i, runs[i], runs[0])
		}
	}
}

func TestMatchParallelEqualsSequential(t *testing.T) {
	for _, strategy := range []config.Strategy{config.StrategyFirst, config.StrategyBest} {
		for _, threshold := range []float64{0.004, 0.9} {
			c := newCorpus()
			thumbs, videos := grid(c, 10)
			// A couple of broken and mis-shaped videos to exercise counters.
			videos = append(videos, "broken.mp4", "square.mp4")
			c.video("square.mp4", 500, 500)

			seqOpts := opts(threshold)
			seqOpts.Strategy = strategy
			parOpts := seqOpts
			parOpts.Workers = 4

			seq := NewEngine(c.dec, c.sc, seqOpts)
			par := NewEngine(c.dec, c.sc, parOpts)
			for _, th := range thumbs {
				a, err := seq.Match(context.Background(), th, videos)
				if err != nil {
					t.Fatal(err)
				}
				b, err := par.Match(context.Background(), th, videos)
				if err != nil {
					t.Fatal(err)
				}
				if a != b {
					t.Fatalf("%s/%v %s: sequential %+v != parallel %+v", strategy, threshold, th.Path, a, b)
				}
			}
		}
	}
}

func TestMatchObserverSeesScoredPairs(t *testing.T) {
	c := newCorpus()
	th := c.thumb("t.jpg", 160, 90)
	c.video("a.mp4", 1920, 1080)
	c.video("b.mp4", 1920, 1080)
	c.difference("t.jpg", "a.mp4", 0.5)
	c.difference("t.jpg", "b.mp4", 0.001)

	var seen []Score
	o := DefaultOptions()
	o.Observer = func(_ discovery.Thumbnail, s Score, thumbImg, frameImg image.Image) {
		if thumbImg == nil || frameImg == nil {
			t.Error("observer received nil image")
		}
		seen = append(seen, s)
	}
	e := NewEngine(c.dec, c.sc, o)
	if _, err := e.Match(context.Background(), th, []string{"a.mp4", "b.mp4"}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0].Candidate != "a.mp4" || seen[1].Candidate != "b.mp4" {
		t.Errorf("observer saw %+v", seen)
	}
}

func TestConsumedSet(t *testing.T) {
	s := NewConsumedSet()
	if !s.Add("b") || !s.Add("a") {
		t.Fatal("Add of new path returned false")
	}
	if s.Add("a") {
		t.Error("second Add of same path returned true")
	}
	if !s.Contains("a") || s.Contains("c") {
		t.Error("Contains mismatch")
	}
	if got := s.Sorted(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Sorted() = %v", got)
	}
}

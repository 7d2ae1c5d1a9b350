package watch

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/diff"
	"github.com/vigil-watch/vigil/internal/sampling"
	"github.com/vigil-watch/vigil/internal/testutil"
)

var blackPixel = color.RGBA{A: 255}

func testScope() capture.Scope {
	return capture.Scope{Kind: capture.ScopeFrontmost}
}

// shortOptions keeps session tests around the one-second duration floor.
func shortOptions() Options {
	opts := DefaultOptions()
	opts.Duration = time.Second
	opts.IdleFPS = 5
	opts.ActiveFPS = 10
	opts.QuietPeriod = 300 * time.Millisecond
	return opts
}

func TestStaticSceneKeepsEveryCapturedFrame(t *testing.T) {
	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), shortOptions(), src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// An unchanging scene still keeps every governed capture; the
	// threshold only tunes the sampling rate.
	if res.Stats.FramesKept < 3 {
		t.Errorf("kept %d frames over 1s at 5fps, want at least 3", res.Stats.FramesKept)
	}
	if res.Stats.FramesKept != len(res.Kept) {
		t.Errorf("stats kept %d, result lists %d", res.Stats.FramesKept, len(res.Kept))
	}
	if res.Stats.FramesDropped != 0 {
		t.Errorf("dropped %d frames without any cap configured", res.Stats.FramesDropped)
	}
	if len(st.Frames) != res.Stats.FramesKept {
		t.Errorf("store saw %d frames, stats say %d", len(st.Frames), res.Stats.FramesKept)
	}

	// Frames after the baseline report a zero changed fraction.
	for _, kf := range res.Kept[1:] {
		if kf.ChangedFraction != 0 {
			t.Errorf("frame %d changed fraction = %v, want 0", kf.Seq, kf.ChangedFraction)
		}
	}

	if res.Sheet == nil {
		t.Fatal("expected a contact sheet")
	}
	if st.Sheets != 1 {
		t.Errorf("store saw %d sheets, want 1", st.Sheets)
	}
	if res.EndedAt.Before(res.StartedAt) {
		t.Error("ended before it started")
	}
}

func TestFrameCapEndsSessionEarly(t *testing.T) {
	opts := shortOptions()
	opts.Duration = 30 * time.Second
	opts.MaxFrames = 3

	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), opts, src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	start := time.Now()
	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.FramesKept != 3 {
		t.Errorf("kept %d frames, want exactly the cap of 3", res.Stats.FramesKept)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("session ran %v, should have stopped at the cap well before the 30s duration", elapsed)
	}
}

func TestByteBudgetEndsSessionEarly(t *testing.T) {
	opts := shortOptions()
	opts.Duration = 30 * time.Second
	opts.MaxMegabytes = 1

	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{FrameSize: 200_000}

	sess, err := NewSession(testScope(), opts, src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.FramesKept != 5 {
		t.Errorf("kept %d frames under a 1MB budget of 200KB frames, want 5", res.Stats.FramesKept)
	}
	if res.Stats.TotalBytes != 1_000_000 {
		t.Errorf("total bytes = %d, want 1000000", res.Stats.TotalBytes)
	}
	if res.Stats.FramesDropped != 1 {
		t.Errorf("dropped = %d, want 1 (the candidate that broke the budget)", res.Stats.FramesDropped)
	}
}

func TestByteBudgetHoldsWhenFramesEncodeLarger(t *testing.T) {
	// 64x64 frames estimate at 4 KB but the store reports 300 KB each, so
	// the admission gate alone would sail past the budget. The ceiling has
	// to hold over the real encoded bytes.
	opts := shortOptions()
	opts.Duration = 30 * time.Second
	opts.MaxMegabytes = 1

	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{FrameSize: 300_000}

	sess, err := NewSession(testScope(), opts, src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.TotalBytes > 1_000_000 {
		t.Errorf("total bytes = %d, exceeds the 1000000 budget", res.Stats.TotalBytes)
	}
	if res.Stats.FramesKept != 3 {
		t.Errorf("kept %d frames of 300KB under a 1MB budget, want 3", res.Stats.FramesKept)
	}
	if res.Stats.FramesDropped != 1 {
		t.Errorf("dropped = %d, want 1 (the commit that would breach the budget)", res.Stats.FramesDropped)
	}
	if len(st.Frames) != 3 {
		t.Errorf("store holds %d frames, want 3 after the over-budget write was discarded", len(st.Frames))
	}
	if st.Discarded != 1 {
		t.Errorf("store discarded %d frames, want 1", st.Discarded)
	}
}

func TestSingleFrameCapStopsAfterBaseline(t *testing.T) {
	opts := shortOptions()
	opts.Duration = 30 * time.Second
	opts.MaxFrames = 1

	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), opts, src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	start := time.Now()
	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.FramesKept != 1 {
		t.Errorf("kept %d frames, want just the baseline", res.Stats.FramesKept)
	}
	if res.Stats.FramesDropped != 0 {
		t.Errorf("dropped %d frames; the baseline fills the cap, nothing more should be sampled", res.Stats.FramesDropped)
	}
	if src.Captures != 1 {
		t.Errorf("source captured %d times, want 1", src.Captures)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("session ran %v, should have stopped right after the baseline", elapsed)
	}
}

func TestDiffScaleFollowsFallback(t *testing.T) {
	// A quality session whose every comparison blows the budget reports
	// the fast algorithm, and its scale must be the fast one too.
	opts := shortOptions()
	opts.Strategy = diff.StrategyQuality
	opts.DiffBudget = time.Nanosecond

	src := testutil.NewActivatingSource(128, 128, 0)
	sess, err := NewSession(testScope(), opts, src, &testutil.RecordingStore{}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.FramesKept < 2 {
		t.Fatalf("kept %d frames, need at least one comparison", res.Stats.FramesKept)
	}
	if res.DiffAlgorithm != diff.StrategyFast {
		t.Fatalf("diff algorithm = %q, want fast after universal fallback", res.DiffAlgorithm)
	}

	fastEngine, _ := diff.NewEngine(diff.Config{Strategy: diff.StrategyFast}, nil)
	if res.DiffScale != fastEngine.ComparisonScale() {
		t.Errorf("diff scale = %d, want the fast scale %d", res.DiffScale, fastEngine.ComparisonScale())
	}
}

func TestRepeatedCaptureFailureIsFatal(t *testing.T) {
	src := &testutil.ScriptedSource{FailAll: true}
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), shortOptions(), src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("err = %v, want ErrCaptureFailed", err)
	}
	if res == nil {
		t.Fatal("fatal session must still return a result")
	}
	if res.Stats.FramesKept != 0 {
		t.Errorf("kept %d frames from a source that never succeeded", res.Stats.FramesKept)
	}
	if res.Sheet != nil {
		t.Error("no frames means no sheet")
	}
}

func TestTransientFailureRecovers(t *testing.T) {
	var mu sync.Mutex
	fails := 2
	src := &testutil.ScriptedSource{}
	src.Render = func(seq uint64, _ time.Duration) *capture.Frame {
		mu.Lock()
		defer mu.Unlock()
		if fails > 0 {
			fails--
			return nil
		}
		return testutil.SolidFrame(64, 64, blackPixel, seq)
	}
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), shortOptions(), src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("two transient failures should not be fatal: %v", err)
	}
	if res.Stats.FramesKept == 0 {
		t.Error("expected frames after the source recovered")
	}
}

func TestStoreFailureIsFatal(t *testing.T) {
	src := testutil.NewStaticSource(64, 64)
	st := &testutil.RecordingStore{FailWrites: true}

	sess, err := NewSession(testScope(), shortOptions(), src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error when the store cannot write")
	}
	if res == nil {
		t.Fatal("fatal session must still return a result")
	}
}

func TestHeartbeatsEmitted(t *testing.T) {
	opts := shortOptions()
	opts.Heartbeat = 100 * time.Millisecond

	src := testutil.NewStaticSource(64, 64)
	sess, err := NewSession(testScope(), opts, src, &testutil.RecordingStore{}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	var mu sync.Mutex
	var beats []Heartbeat
	sess.OnHeartbeat = func(hb Heartbeat) {
		mu.Lock()
		defer mu.Unlock()
		beats = append(beats, hb)
	}

	if _, err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(beats) < 3 {
		t.Fatalf("got %d heartbeats over 1s at 100ms cadence, want at least 3", len(beats))
	}
	for _, hb := range beats {
		if hb.SessionID != sess.ID() {
			t.Errorf("heartbeat session id = %q, want %q", hb.SessionID, sess.ID())
		}
		if hb.State != sampling.StateIdle {
			t.Errorf("static scene heartbeat state = %q, want idle", hb.State)
		}
	}
}

func TestChangingSceneReportsChange(t *testing.T) {
	opts := shortOptions()
	opts.HighlightChanges = true

	src := testutil.NewActivatingSource(128, 128, 0)
	st := &testutil.RecordingStore{}

	sess, err := NewSession(testScope(), opts, src, st, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	res, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.FramesKept < 2 {
		t.Fatalf("kept %d frames, want at least baseline plus one", res.Stats.FramesKept)
	}

	sawChange := false
	for _, kf := range res.Kept[1:] {
		if kf.ChangedFraction > 0 {
			sawChange = true
		}
	}
	if !sawChange {
		t.Error("moving block never produced a nonzero changed fraction")
	}

	sawRegions := false
	for _, sf := range st.Frames[1:] {
		if sf.Regions > 0 {
			sawRegions = true
		}
	}
	if !sawRegions {
		t.Error("highlighting enabled but no frame was stored with regions")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	opts := shortOptions()
	opts.Duration = 30 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	src := testutil.NewStaticSource(64, 64)
	sess, err := NewSession(testScope(), opts, src, &testutil.RecordingStore{}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	start := time.Now()
	res, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation should end the session cleanly, got %v", err)
	}
	if res == nil {
		t.Fatal("expected a result after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("session ran %v after cancellation", elapsed)
	}
}

func TestNewSessionRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFrames = 0
	if _, err := NewSession(testScope(), opts, testutil.NewStaticSource(8, 8), &testutil.RecordingStore{}, nil); err == nil {
		t.Fatal("expected error for invalid options")
	}
}

func TestDominantAlgorithm(t *testing.T) {
	if got := dominantAlgorithm(nil, "quality"); got != "quality" {
		t.Errorf("empty counts = %q, want requested strategy", got)
	}
	counts := map[diff.Strategy]int{"fast": 3, "quality": 7}
	if got := dominantAlgorithm(counts, "fast"); got != "quality" {
		t.Errorf("dominant = %q, want quality", got)
	}
}

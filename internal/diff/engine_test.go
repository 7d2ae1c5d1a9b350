package diff

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/vigil-watch/vigil/internal/testutil"
)

var black = color.RGBA{A: 255}

func TestCompareIdenticalFrames(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	prev := testutil.SolidFrame(256, 256, black, 0)
	next := testutil.SolidFrame(256, 256, black, 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.ChangedFraction != 0 {
		t.Errorf("identical frames changed fraction = %v, want 0", res.ChangedFraction)
	}
	if res.Algorithm != StrategyFast {
		t.Errorf("algorithm = %q, want %q", res.Algorithm, StrategyFast)
	}
	if len(res.Regions) != 0 {
		t.Errorf("identical frames produced %d regions", len(res.Regions))
	}
}

func TestCompareHalfChanged(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	prev := testutil.SolidFrame(128, 128, black, 0)
	next := testutil.FrameWithBlock(128, 128, image.Rect(64, 0, 128, 128), 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if math.Abs(res.ChangedFraction-0.5) > 0.05 {
		t.Errorf("half-changed fraction = %v, want ~0.5", res.ChangedFraction)
	}
}

func TestCompareFractionStaysInRange(t *testing.T) {
	engine, _ := NewEngine(DefaultConfig(), nil)

	prev := testutil.SolidFrame(200, 150, black, 0)
	next := testutil.SolidFrame(200, 150, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.ChangedFraction < 0 || res.ChangedFraction > 1 {
		t.Errorf("changed fraction %v outside [0, 1]", res.ChangedFraction)
	}
	if res.ChangedFraction < 0.99 {
		t.Errorf("fully inverted frame fraction = %v, want ~1", res.ChangedFraction)
	}
}

func TestCompareMismatchedDimensions(t *testing.T) {
	engine, _ := NewEngine(DefaultConfig(), nil)

	prev := testutil.SolidFrame(640, 480, black, 0)
	next := testutil.SolidFrame(320, 240, black, 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare across dimensions failed: %v", err)
	}
	// Downsampled to a common size the content is identical.
	if res.ChangedFraction > 0.02 {
		t.Errorf("same content at different sizes gave fraction %v", res.ChangedFraction)
	}
}

func TestQualityWithinBudget(t *testing.T) {
	engine, err := NewEngine(Config{
		Strategy: StrategyQuality,
		Budget:   10 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	prev := testutil.SolidFrame(160, 120, black, 0)
	next := testutil.FrameWithBlock(160, 120, image.Rect(0, 0, 40, 40), 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.Algorithm != StrategyQuality {
		t.Errorf("algorithm = %q, want %q", res.Algorithm, StrategyQuality)
	}
	if res.ChangedFraction <= 0 {
		t.Error("changed block not detected by quality strategy")
	}
	if engine.Fallbacks() != 0 {
		t.Errorf("unexpected fallbacks: %d", engine.Fallbacks())
	}
}

func TestQualityBudgetFallback(t *testing.T) {
	engine, err := NewEngine(Config{
		Strategy:       StrategyQuality,
		Budget:         time.Nanosecond,
		CollectRegions: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	prev := testutil.SolidFrame(1024, 768, black, 0)
	next := testutil.FrameWithBlock(1024, 768, image.Rect(100, 100, 400, 400), 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.Algorithm != StrategyFast {
		t.Errorf("algorithm after fallback = %q, want %q", res.Algorithm, StrategyFast)
	}
	if engine.Fallbacks() != 1 {
		t.Errorf("fallbacks = %d, want 1", engine.Fallbacks())
	}
	if res.ChangedFraction <= 0 {
		t.Error("fallback pass missed the changed block")
	}
}

func TestCompareRegions(t *testing.T) {
	engine, err := NewEngine(Config{
		Strategy:       StrategyFast,
		CollectRegions: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	block := image.Rect(200, 100, 500, 400)
	prev := testutil.SolidFrame(1280, 720, black, 0)
	next := testutil.FrameWithBlock(1280, 720, block, 1)

	res, err := engine.Compare(context.Background(), prev, next)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(res.Regions) == 0 {
		t.Fatal("expected at least one changed region")
	}
	bounds := image.Rect(0, 0, 1280, 720)
	for _, r := range res.Regions {
		if !r.In(bounds) {
			t.Errorf("region %v escapes frame bounds %v", r, bounds)
		}
	}
	// The union of reported regions must cover the changed block, give or
	// take the block granularity the fast strategy works at.
	union := res.Regions[0]
	for _, r := range res.Regions[1:] {
		union = union.Union(r)
	}
	if !block.Inset(20).In(union) {
		t.Errorf("regions %v do not cover changed block %v", union, block)
	}
}

func TestCompareContextCanceled(t *testing.T) {
	engine, _ := NewEngine(DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prev := testutil.SolidFrame(64, 64, black, 0)
	next := testutil.SolidFrame(64, 64, black, 1)
	if _, err := engine.Compare(ctx, prev, next); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	if _, err := NewEngine(Config{Strategy: "bogus"}, nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNewEngineDefaults(t *testing.T) {
	engine, err := NewEngine(Config{}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if engine.Strategy() != StrategyFast {
		t.Errorf("default strategy = %q, want %q", engine.Strategy(), StrategyFast)
	}
}

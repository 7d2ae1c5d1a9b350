package sheet

import (
	"image/color"
	"testing"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/testutil"
)

func frames(n int) []*capture.Frame {
	out := make([]*capture.Frame, n)
	for i := range out {
		out[i] = testutil.SolidFrame(160, 100, color.RGBA{R: uint8(i), A: 255}, uint64(i))
	}
	return out
}

func TestSampleIndexes(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		capacity int
		want     []int
	}{
		{name: "zero frames", n: 0, capacity: 36, want: nil},
		{name: "one frame", n: 1, capacity: 36, want: []int{0}},
		{name: "within capacity uses all", n: 4, capacity: 36, want: []int{0, 1, 2, 3}},
		{name: "at capacity uses all", n: 4, capacity: 4, want: []int{0, 1, 2, 3}},
		{name: "even spread", n: 9, capacity: 5, want: []int{0, 2, 4, 6, 8}},
		{name: "capacity two keeps endpoints", n: 100, capacity: 2, want: []int{0, 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleIndexes(tt.n, tt.capacity)
			if len(got) != len(tt.want) {
				t.Fatalf("SampleIndexes(%d, %d) = %v, want %v", tt.n, tt.capacity, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("SampleIndexes(%d, %d) = %v, want %v", tt.n, tt.capacity, got, tt.want)
				}
			}
		})
	}
}

func TestSampleIndexesProperties(t *testing.T) {
	for _, n := range []int{37, 50, 100, 999} {
		got := SampleIndexes(n, 36)
		if len(got) > 36 {
			t.Fatalf("n=%d produced %d indexes, capacity is 36", n, len(got))
		}
		if got[0] != 0 {
			t.Errorf("n=%d first index = %d, want 0", n, got[0])
		}
		if got[len(got)-1] != n-1 {
			t.Errorf("n=%d last index = %d, want %d", n, got[len(got)-1], n-1)
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("n=%d indexes not strictly increasing: %v", n, got)
			}
		}
	}
}

func TestGridShape(t *testing.T) {
	tests := []struct {
		n, cols, rows int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 1},
		{4, 2, 2},
		{5, 3, 2},
		{9, 3, 3},
		{10, 4, 3},
		{36, 6, 6},
	}
	for _, tt := range tests {
		cols, rows := GridShape(tt.n)
		if cols != tt.cols || rows != tt.rows {
			t.Errorf("GridShape(%d) = (%d, %d), want (%d, %d)", tt.n, cols, rows, tt.cols, tt.rows)
		}
	}
}

func TestAssembleEmpty(t *testing.T) {
	if sh := Assemble(nil, DefaultConfig()); sh != nil {
		t.Error("zero frames should yield a nil sheet, not an error or empty image")
	}
}

func TestAssembleSingleFrame(t *testing.T) {
	sh := Assemble(frames(1), DefaultConfig())
	if sh == nil {
		t.Fatal("expected a sheet for one frame")
	}
	if sh.Columns != 1 || sh.Rows != 1 {
		t.Errorf("grid = %dx%d, want 1x1", sh.Columns, sh.Rows)
	}
	if len(sh.SampledIndexes) != 1 || sh.SampledIndexes[0] != 0 {
		t.Errorf("sampled indexes = %v, want [0]", sh.SampledIndexes)
	}
	wantW := DefaultTileWidth
	wantH := DefaultTileWidth * 100 / 160
	if got := sh.Image.Rect; got.Dx() != wantW || got.Dy() != wantH {
		t.Errorf("image size = %dx%d, want %dx%d", got.Dx(), got.Dy(), wantW, wantH)
	}
}

func TestAssembleGridDimensions(t *testing.T) {
	sh := Assemble(frames(7), Config{Capacity: 36, TileWidth: 100})
	if sh == nil {
		t.Fatal("expected a sheet")
	}
	if sh.Columns != 3 || sh.Rows != 3 {
		t.Errorf("grid = %dx%d, want 3x3", sh.Columns, sh.Rows)
	}
	tileH := 100 * 100 / 160
	if got := sh.Image.Rect; got.Dx() != 3*100 || got.Dy() != 3*tileH {
		t.Errorf("image size = %dx%d, want %dx%d", got.Dx(), got.Dy(), 300, 3*tileH)
	}
}

func TestAssembleOverCapacitySamples(t *testing.T) {
	sh := Assemble(frames(80), Config{Capacity: 9, TileWidth: 64})
	if sh == nil {
		t.Fatal("expected a sheet")
	}
	if len(sh.SampledIndexes) != 9 {
		t.Fatalf("sampled %d frames, want 9", len(sh.SampledIndexes))
	}
	if sh.SampledIndexes[0] != 0 || sh.SampledIndexes[8] != 79 {
		t.Errorf("sampling must include first and last frame, got %v", sh.SampledIndexes)
	}
	if sh.Columns != 3 || sh.Rows != 3 {
		t.Errorf("grid = %dx%d, want 3x3", sh.Columns, sh.Rows)
	}
}

package pool

import (
	"errors"
	"testing"
)

func TestCompressTick(t *testing.T) {
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 60, 0},
		{60, 60, 1},
		{-60, 60, -1},
		{-61, 60, -2},
		{-121, 60, -3},
		{119, 60, 1},
		{-1, 1, -1},
	}
	for _, tc := range cases {
		if got := compressTick(tc.tick, tc.spacing); got != tc.want {
			t.Fatalf("compressTick(%d, %d) = %d, want %d", tc.tick, tc.spacing, got, tc.want)
		}
	}
}

func mustFlip(t *testing.T, b TickBitmap, tick, spacing int32) {
	t.Helper()
	if err := b.flip(tick, spacing); err != nil {
		t.Fatalf("flip(%d, %d): %v", tick, spacing, err)
	}
}

func TestBitmapFlipAndSearch(t *testing.T) {
	b := make(TickBitmap)
	mustFlip(t, b, -120, 60)
	mustFlip(t, b, 120, 60)

	// Searching left from between the two ticks lands on the lower one.
	tick, initialized := b.nextInitializedTickWithinOneWord(0, 60, true)
	if !initialized || tick != -120 {
		t.Fatalf("lte search from 0: got (%d, %v), want (-120, true)", tick, initialized)
	}
	// A tick is its own result when searching left.
	tick, initialized = b.nextInitializedTickWithinOneWord(-120, 60, true)
	if !initialized || tick != -120 {
		t.Fatalf("lte search from -120: got (%d, %v), want (-120, true)", tick, initialized)
	}

	// Searching right excludes the starting tick.
	tick, initialized = b.nextInitializedTickWithinOneWord(-120, 60, false)
	if !initialized || tick != 120 {
		t.Fatalf("gte search from -120: got (%d, %v), want (120, true)", tick, initialized)
	}
	tick, initialized = b.nextInitializedTickWithinOneWord(-180, 60, false)
	if !initialized || tick != -120 {
		t.Fatalf("gte search from -180: got (%d, %v), want (-120, true)", tick, initialized)
	}

	// Double flip clears the bit and drops the word.
	mustFlip(t, b, -120, 60)
	tick, initialized = b.nextInitializedTickWithinOneWord(0, 60, true)
	if initialized {
		t.Fatalf("search after clearing: unexpectedly found %d", tick)
	}
	if len(b) != 1 {
		t.Fatalf("words in bitmap = %d, want 1", len(b))
	}
}

func TestBitmapFlipRejectsMisalignedTick(t *testing.T) {
	b := make(TickBitmap)
	if err := b.flip(61, 60); !errors.Is(err, ErrTickMisaligned) {
		t.Fatalf("flip(61, 60): got %v, want ErrTickMisaligned", err)
	}
	if err := b.flip(-61, 60); !errors.Is(err, ErrTickMisaligned) {
		t.Fatalf("flip(-61, 60): got %v, want ErrTickMisaligned", err)
	}
	if len(b) != 0 {
		t.Fatalf("misaligned flips touched the bitmap: %d words", len(b))
	}
}

func TestBitmapWordBoundaries(t *testing.T) {
	b := make(TickBitmap)
	// Nothing initialized: both directions return the word boundary.
	tick, initialized := b.nextInitializedTickWithinOneWord(128, 1, true)
	if initialized || tick != 0 {
		t.Fatalf("lte boundary from 128: got (%d, %v), want (0, false)", tick, initialized)
	}
	tick, initialized = b.nextInitializedTickWithinOneWord(-1, 1, true)
	if initialized || tick != -256 {
		t.Fatalf("lte boundary from -1: got (%d, %v), want (-256, false)", tick, initialized)
	}
	tick, initialized = b.nextInitializedTickWithinOneWord(0, 1, false)
	if initialized || tick != 255 {
		t.Fatalf("gte boundary from 0: got (%d, %v), want (255, false)", tick, initialized)
	}
}

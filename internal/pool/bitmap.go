package pool

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// TickBitmap is a sparse map of 256-tick words. Bit i of word w marks the
// initialized state of compressed tick w*256+i, where a compressed tick is
// the tick divided by the pool's tick spacing, rounded toward negative
// infinity.
type TickBitmap map[int16]*uint256.Int

func compressTick(tick, spacing int32) int32 {
	compressed := tick / spacing
	if tick < 0 && tick%spacing != 0 {
		compressed--
	}
	return compressed
}

func tickPosition(compressed int32) (int16, uint8) {
	return int16(compressed >> 8), uint8(compressed & 0xff)
}

// flip toggles the initialized bit for tick, which must be a multiple of
// spacing: a misaligned tick would floor-compress onto a neighbor's bit.
func (b TickBitmap) flip(tick, spacing int32) error {
	if tick%spacing != 0 {
		return ErrTickMisaligned
	}
	wordPos, bitPos := tickPosition(compressTick(tick, spacing))
	word, ok := b[wordPos]
	if !ok {
		word = new(uint256.Int)
		b[wordPos] = word
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b, wordPos)
	}
	return nil
}

// nextInitializedTickWithinOneWord finds the next initialized tick at most
// one word away from tick, in the direction given by lte (true searches left
// including tick itself, false searches right excluding tick). The second
// return reports whether the returned tick is initialized; if not, it is the
// word boundary.
func (b TickBitmap) nextInitializedTickWithinOneWord(tick, spacing int32, lte bool) (int32, bool) {
	compressed := compressTick(tick, spacing)

	if lte {
		wordPos, bitPos := tickPosition(compressed)
		// Bits at or below bitPos. Lsh by 256 wraps to zero so bitPos=255
		// yields an all-ones mask, which is what we want.
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos)+1)
		mask.SubUint64(mask, 1)
		masked := new(uint256.Int)
		if word, ok := b[wordPos]; ok {
			masked.And(word, mask)
		}
		if masked.IsZero() {
			return (compressed - int32(bitPos)) * spacing, false
		}
		msb := uint8(masked.BitLen() - 1)
		return (compressed - int32(bitPos-msb)) * spacing, true
	}

	// Start from the next compressed tick to the right.
	wordPos, bitPos := tickPosition(compressed + 1)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	mask.SubUint64(mask, 1)
	mask.Not(mask)
	masked := new(uint256.Int)
	if word, ok := b[wordPos]; ok {
		masked.And(word, mask)
	}
	if masked.IsZero() {
		return (compressed + 1 + int32(255-bitPos)) * spacing, false
	}
	lsb := leastSignificantBit(masked)
	return (compressed + 1 + int32(lsb-bitPos)) * spacing, true
}

func leastSignificantBit(x *uint256.Int) uint8 {
	for i := 0; i < 4; i++ {
		if w := x[i]; w != 0 {
			return uint8(i*64 + bits.TrailingZeros64(w))
		}
	}
	return 0
}

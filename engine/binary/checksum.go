package binary

import "encoding/binary"

// ChecksumSize is the width, in bytes, of the trailer's checksum word.
const ChecksumSize = 4

// sumWords adds up buf interpreted as a sequence of big-endian uint32
// words. len(buf) is assumed to be a multiple of 4 — true for both the
// 4 KiB super page and the 16 KiB data/index pages.
func sumWords(buf []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(buf); i += 4 {
		sum += binary.BigEndian.Uint32(buf[i : i+4])
	}
	return sum
}

// ComputeChecksum zeroes the trailing 4-byte checksum word, sums the
// rest of the page as big-endian uint32 words, and writes back the
// two's-complement negation (~sum + 1) so that summing the whole page
// — checksum word included — yields zero. Returns the stored value.
func ComputeChecksum(page []byte) uint32 {
	n := len(page)
	binary.BigEndian.PutUint32(page[n-ChecksumSize:], 0)
	sum := sumWords(page)
	checksum := ^sum + 1
	binary.BigEndian.PutUint32(page[n-ChecksumSize:], checksum)
	return checksum
}

// VerifyChecksum reports whether the page's word-sum is zero, i.e.
// whether the checksum word already stored matches the rest of the
// page's content.
func VerifyChecksum(page []byte) bool {
	return sumWords(page) == 0
}

package util

import (
	"fmt"
	"hash/fnv"
)

// uidRoot is a freely usable UID root for generated instances.
const uidRoot = "1.2.826.0.1.3680043.8.498"

// GenerateDeterministicUID derives a DICOM UID from a seed string.
// The same seed always yields the same UID, so repeated runs over the same
// inputs produce stable SeriesInstanceUID/SOPInstanceUID values. The result
// stays within the 64 character UID limit and contains no component with a
// leading zero.
func GenerateDeterministicUID(seed string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed)) // hash.Write never returns an error
	sum := h.Sum64()

	// Split the hash into two components so the numeric parts stay short
	// enough for the 64 character cap regardless of the root length.
	high := sum >> 32
	low := sum & 0xFFFFFFFF

	// UID components must not have leading zeros; a zero component is
	// written as "1" plus the other half to keep determinism.
	if high == 0 {
		high = 1
	}
	if low == 0 {
		low = 1
	}

	return fmt.Sprintf("%s.%d.%d", uidRoot, high, low)
}

package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChecksumPrefix tags every Checksum so a corrupted or truncated value is
// never mistaken for a valid one missing its algorithm tag.
const ChecksumPrefix = "sha256:"

// Checksum is a hex-encoded SHA-256 digest, prefixed with ChecksumPrefix.
// segment.MarshalPostings/MarshalStored stamp one over each postings/stored
// file when indexing.Writer commits a segment, and schema.MarshalSchema over
// the encoded schema; segment.UnmarshalPostings/UnmarshalStored and
// schema.UnmarshalSchema recompute and compare it to catch on-disk
// corruption before it reaches a query.
type Checksum string

// ComputeChecksum hashes data and returns its formatted Checksum.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return FormatChecksum(sum[:])
}

// FormatChecksum renders raw digest bytes as a Checksum carrying
// ChecksumPrefix.
func FormatChecksum(sum []byte) Checksum {
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum))
}

package rng

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// ParseSeed converts a user supplied seed string into a numeric seed.
//
// Numeric strings are parsed as unsigned 32-bit integers (values that overflow
// are reduced modulo 2^32). Any other non-empty string is hashed with FNV-1a.
// The boolean is false when the input is blank, meaning the caller should use
// a default non-deterministic seed.
func ParseSeed(raw string) (uint32, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	if value, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return uint32(value), true
	}
	if value, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return uint32(value), true
	}
	return HashSeed(trimmed), true
}

// HashSeed derives a seed from an arbitrary label.
func HashSeed(label string) uint32 {
	hasher := fnv.New32a()
	hasher.Write([]byte(label))
	return hasher.Sum32()
}

// FromString builds a generator from a seed string, falling back to a default
// seed when the string is blank.
func FromString(raw string) *RNG {
	if seed, ok := ParseSeed(raw); ok {
		return New(seed)
	}
	return NewDefault()
}

// RoundSeed derives the seed for the index-th round of a batch. Adjacent
// indices are decorrelated through a xorshift-multiply mix so that batches
// with neighbouring bases do not replay each other's rounds.
func RoundSeed(base uint32, index int) uint32 {
	x := base ^ uint32(index)*0x9e3779b9
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

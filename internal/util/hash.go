// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "github.com/cespare/xxhash/v2"

// HashString hashes an entity id for shard selection.
func HashString(s string) uint64 { return xxhash.Sum64String(s) }

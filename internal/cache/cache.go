// Package cache provides the TTL response cache shared by the remote price
// client. Two implementations exist: an in-process map for development and a
// Redis-backed cache for deployments where several instances share one quota
// against the upstream API.
package cache

import "time"

// ResponseCache stores raw response payloads under deterministic keys until
// they expire.
type ResponseCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

package pdfrelay

import (
	"fmt"
	"hash/fnv"

	"github.com/ambiyansyah-risyal/pdfrelay/internal/singleflight"
)

// DedupKeyFunc builds a key identifying identical in-flight requests.
type DedupKeyFunc func(method, url string) string

// DefaultDedupKeyFunc hashes method + URL.
func DefaultDedupKeyFunc(method, url string) string {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte(url))
	return fmt.Sprintf("%x", h.Sum64())
}

// DedupCondition decides whether a request is eligible for coalescing.
type DedupCondition func(method, url string) bool

// DefaultDedupCondition coalesces idempotent reads only. Mutating requests
// must each reach the server.
func DefaultDedupCondition(method, url string) bool {
	return method == "GET" || method == "HEAD"
}

// deduplicator coalesces identical concurrent requests: duplicates wait for
// the owner's full attempt-plus-retry sequence and share its result.
type deduplicator struct {
	group     *singleflight.Group
	keyFunc   DedupKeyFunc
	condition DedupCondition
}

func newDeduplicator(keyFunc DedupKeyFunc, condition DedupCondition) *deduplicator {
	if keyFunc == nil {
		keyFunc = DefaultDedupKeyFunc
	}
	if condition == nil {
		condition = DefaultDedupCondition
	}
	return &deduplicator{
		group:     singleflight.New(),
		keyFunc:   keyFunc,
		condition: condition,
	}
}

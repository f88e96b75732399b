package causal

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SimilarityFunction scores how alike two canonical nudge keys are, in [0,1].
// Implementations must be symmetric and safe for concurrent use.
type SimilarityFunction interface {
	Similarity(a, b string) float64
}

// SimilarityFunc adapts a function to SimilarityFunction.
type SimilarityFunc func(a, b string) float64

// Similarity calls f.
func (f SimilarityFunc) Similarity(a, b string) float64 {
	return f(a, b)
}

// TokenJaccard is the Jaccard index of the whitespace-separated token sets
// of two keys. Two empty keys are identical.
type TokenJaccard struct{}

// Similarity implements SimilarityFunction.
func (TokenJaccard) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// CachedSimilarity memoizes an expensive SimilarityFunction (an embedding
// call, say) in a fixed-size LRU. The cache key is order-independent.
type CachedSimilarity struct {
	inner SimilarityFunction
	cache *lru.Cache[string, float64]
}

// NewCachedSimilarity wraps inner with an LRU of the given size.
func NewCachedSimilarity(inner SimilarityFunction, size int) (*CachedSimilarity, error) {
	if inner == nil {
		return nil, fmt.Errorf("causal: cached similarity needs an inner function")
	}
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, fmt.Errorf("causal: similarity cache: %w", err)
	}
	return &CachedSimilarity{inner: inner, cache: cache}, nil
}

// Similarity implements SimilarityFunction.
func (c *CachedSimilarity) Similarity(a, b string) float64 {
	if b < a {
		a, b = b, a
	}
	key := a + "\x00" + b
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	v := c.inner.Similarity(a, b)
	c.cache.Add(key, v)
	return v
}

// Len returns the number of cached pairs.
func (c *CachedSimilarity) Len() int {
	return c.cache.Len()
}

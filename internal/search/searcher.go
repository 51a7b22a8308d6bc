package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepkit/internal/store"
)

const (
	headingBoost = 2.0
	symbolBoost  = 1.5
	bodyBoost    = 1.0

	defaultLimit = 20
	feedLimit    = 200
)

// Index is the slice of the store the searcher reads.
type Index interface {
	SearchSections(ctx context.Context, term string, limit int) ([]store.SectionRow, error)
	SearchSymbols(ctx context.Context, term string, limit int) ([]store.SymbolRow, error)
}

// Hit is one ranked search result. For section matches Heading is the
// heading text; for snippet symbol matches it is the symbol name.
type Hit struct {
	Path    string   `json:"path"`
	Heading string   `json:"heading"`
	Anchor  string   `json:"anchor,omitempty"`
	Line    int      `json:"line"`
	Score   float64  `json:"score"`
	Terms   []string `json:"terms"`
}

// Searcher ranks index rows against extracted query terms.
type Searcher struct {
	index Index
	cache *resultCache
	log   *zap.Logger
}

func NewSearcher(index Index, log *zap.Logger) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{
		index: index,
		cache: newResultCache(defaultCacheSize, defaultCacheTTL),
		log:   log.Named("search"),
	}
}

// InvalidateCache drops cached results, called after reindexing.
func (s *Searcher) InvalidateCache() {
	s.cache.clear()
}

// SetCache resizes the result cache. Zero values keep the defaults.
func (s *Searcher) SetCache(size int, ttl time.Duration) {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	s.cache = newResultCache(size, ttl)
}

// candidate accumulates evidence for one location before ranking.
type candidate struct {
	hit   Hit
	score float64
	terms map[string]bool
}

// Search runs every extracted term against the index and folds the matches
// into ranked hits. A location matching several terms is boosted over one
// matching a single term repeatedly.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	terms := ExtractTerms(query)
	if terms.Empty() {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	key := cacheKey(query)
	if hits, ok := s.cache.get(key); ok {
		s.log.Debug("cache hit", zap.String("query", query))
		return clampHits(hits, limit), nil
	}

	start := time.Now()
	candidates := make(map[string]*candidate)

	for term, weight := range terms.Weights {
		sections, err := s.index.SearchSections(ctx, term, feedLimit)
		if err != nil {
			return nil, fmt.Errorf("search sections for %q: %w", term, err)
		}
		for _, row := range sections {
			points := weight * bodyBoost
			if containsFold(row.Heading, term) {
				points = weight * headingBoost
			}
			s.accumulate(candidates, Hit{
				Path: row.Path, Heading: row.Heading, Anchor: row.Anchor, Line: row.Line,
			}, term, points)
		}

		symbols, err := s.index.SearchSymbols(ctx, term, feedLimit)
		if err != nil {
			return nil, fmt.Errorf("search symbols for %q: %w", term, err)
		}
		for _, row := range symbols {
			s.accumulate(candidates, Hit{
				Path: row.Path, Heading: row.Name, Line: row.Line,
			}, term, weight*symbolBoost)
		}
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		c.hit.Score = c.score
		if n := len(c.terms); n > 1 {
			c.hit.Score *= 1.0 + float64(n-1)*0.2
		}
		for term := range c.terms {
			c.hit.Terms = append(c.hit.Terms, term)
		}
		sort.Strings(c.hit.Terms)
		hits = append(hits, c.hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].Line < hits[j].Line
	})

	s.cache.set(key, hits)
	s.log.Debug("search complete",
		zap.String("query", query),
		zap.Int("terms", len(terms.Weights)),
		zap.Int("hits", len(hits)),
		zap.Duration("took", time.Since(start)))

	return clampHits(hits, limit), nil
}

func (s *Searcher) accumulate(candidates map[string]*candidate, hit Hit, term string, points float64) {
	key := fmt.Sprintf("%s:%d", hit.Path, hit.Line)
	c, ok := candidates[key]
	if !ok {
		c = &candidate{hit: hit, terms: make(map[string]bool)}
		candidates[key] = c
	}
	c.score += points
	c.terms[term] = true
}

func clampHits(hits []Hit, limit int) []Hit {
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Hit, len(hits))
	copy(out, hits)
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Package resolve maps free-text ingredient phrases onto the canonical
// catalog, and creates new canonical entries for phrases nothing matches.
//
// Matching is deliberately precision-biased: a wrong match silently corrupts
// nutrition totals, while a missed match only costs one extra creation call.
package resolve

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/platewise/platewise/internal/textnorm"
)

const (
	// maxLenRatio rejects candidates whose normalized length differs too
	// much from the query, unless the query tokens are contained in the
	// candidate ("chicken" vs "grilled chicken breast" stays eligible).
	maxLenRatio = 3.0

	// Winners this short ("oil") absorb unrelated matches easily, so they
	// must score near-perfect regardless of the caller's cutoff.
	shortNameLen      = 3
	shortNameMinScore = 98
)

// Match resolves name against the catalog given as parallel name/id arrays.
// cutoff is the minimum composite score (0-100) the winner must reach;
// callers pick it by how much a false positive would cost them.
// Returns (0, false) when no safe match exists.
func Match(name string, names []string, ids []int64, cutoff int) (int64, bool) {
	if len(names) == 0 {
		return 0, false
	}

	qn := textnorm.Normalize(name)
	if qn == "" {
		return 0, false
	}
	qTokens := textnorm.TokenSet(qn)

	// Pre-filter: require at least one shared token, and reject large
	// length mismatches unless the query is a qualifier-stripped subset.
	type candidate struct {
		idx    int
		norm   string
		subset bool
	}
	var prelim []candidate
	for i, raw := range names {
		cn := textnorm.Normalize(raw)
		if cn == "" {
			continue
		}
		cTokens := textnorm.TokenSet(cn)
		if !textnorm.Overlaps(qTokens, cTokens) {
			continue
		}
		subset := textnorm.IsSubset(qTokens, cTokens)
		if !subset && lenRatio(qn, cn) > maxLenRatio {
			continue
		}
		prelim = append(prelim, candidate{idx: i, norm: cn, subset: subset})
	}
	if len(prelim) == 0 {
		return 0, false
	}

	// Subset priority: candidates whose tokens contain all query tokens
	// beat any higher-scoring non-subset match, categorically.
	var pool []candidate
	for _, c := range prelim {
		if c.subset {
			pool = append(pool, c)
		}
	}
	if len(pool) > 0 {
		best := pool[0]
		bestScore := -1.0
		for _, c := range pool {
			if s := combined(qn, c.norm); s > bestScore {
				bestScore = s
				best = c
			}
		}
		return ids[best.idx], true
	}

	best := prelim[0]
	bestScore := -1.0
	for _, c := range prelim {
		if s := combined(qn, c.norm); s > bestScore {
			bestScore = s
			best = c
		}
	}

	if len(best.norm) <= shortNameLen && bestScore < shortNameMinScore {
		return 0, false
	}
	if bestScore < float64(cutoff) {
		return 0, false
	}
	return ids[best.idx], true
}

// combined blends three scorers for robustness: whole-string, token-set, and
// partial similarity, weighted 45/45/10.
func combined(q, cand string) float64 {
	return 0.45*float64(fuzzy.WRatio(q, cand)) +
		0.45*float64(fuzzy.TokenSetRatio(q, cand)) +
		0.10*float64(fuzzy.PartialRatio(q, cand))
}

func lenRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return maxLenRatio + 1
	}
	if la > lb {
		return float64(la) / float64(lb)
	}
	return float64(lb) / float64(la)
}

package ctxpack

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	return matches
}

type document struct {
	path   string
	terms  []string
	termTF map[string]int
	length int
}

// scoreCorpus computes a BM25 score for query against every document,
// returning candidates sorted by descending score with ascending-path
// tie-breaks, matching SPEC_FULL §4.3's determinism requirement.
func scoreCorpus(query string, paths []string, contents map[string][]byte) []Candidate {
	docs := make([]document, 0, len(paths))
	df := make(map[string]int)

	for _, p := range paths {
		terms := tokenize(string(contents[p]))
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		docs = append(docs, document{path: p, terms: terms, termTF: tf, length: len(terms)})
	}

	avgLen := 0.0
	if len(docs) > 0 {
		total := 0
		for _, d := range docs {
			total += d.length
		}
		avgLen = float64(total) / float64(len(docs))
	}

	queryTerms := tokenize(query)
	n := float64(len(docs))

	candidates := make([]Candidate, 0, len(docs))
	for _, d := range docs {
		score := 0.0
		for _, qt := range queryTerms {
			f := float64(d.termTF[qt])
			if f == 0 {
				continue
			}
			dfT := float64(df[qt])
			idf := math.Log(1 + (n-dfT+0.5)/(dfT+0.5))
			denom := f + bm25K1*(1-bm25B+bm25B*float64(d.length)/maxFloat(avgLen, 1))
			score += idf * (f * (bm25K1 + 1) / denom)
		}
		candidates = append(candidates, Candidate{Path: d.path, Score: score, Size: len(contents[d.path])})
	}

	sortCandidates(candidates)
	return candidates
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Path < c[j].Path
	})
}

package ngram

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
)

// RandomSource supplies the randomness for weighted sampling. *rand.Rand satisfies it.
type RandomSource interface {
	// IntN returns a uniform value in [0, n)
	IntN(n int) int
}

// NewSeededSource returns a deterministic source for reproducible generation
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Strategy picks one candidate from a non-empty, token-sorted candidate list
type Strategy string

const (
	// StrategyWeighted samples proportionally to frequency
	StrategyWeighted Strategy = "weighted"
	// StrategyGreedy always takes the most frequent candidate, smallest token on ties
	StrategyGreedy Strategy = "greedy"
)

// ParseStrategy maps a configuration name onto a Strategy; empty selects weighted sampling
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(name)) {
	case "", StrategyWeighted:
		return StrategyWeighted, nil
	case StrategyGreedy:
		return StrategyGreedy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// sampleWeighted draws one candidate with probability count/total
func sampleWeighted(candidates []Candidate, src RandomSource) string {
	total := lo.SumBy(candidates, func(c Candidate) int64 { return c.Count })
	r := int64(src.IntN(int(total)))
	for _, c := range candidates {
		if r < c.Count {
			return c.Token
		}
		r -= c.Count
	}
	return candidates[len(candidates)-1].Token
}

// sampleGreedy returns the first candidate holding the maximum count
func sampleGreedy(candidates []Candidate) string {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Count > best.Count {
			best = c
		}
	}
	return best.Token
}

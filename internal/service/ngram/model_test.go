package ngram

import (
	"testing"

	ngrammodel "ngram-go/internal/model/ngram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const eof = ngrammodel.EndOfSequence

func trainedModel(t *testing.T, n int, tokens []string, opts ...Option) *Model {
	t.Helper()
	m, err := NewModel(n, opts...)
	require.NoError(t, err)
	m.Train(tokens)
	return m
}

func TestNewModel_RejectsSmallOrder(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := NewModel(n)
		assert.ErrorIs(t, err, ErrInvalidOrder, "n=%d", n)
	}

	_, err := NewModel(2, WithStrategy("beam"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestModel_AlternatingScenario(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b", "a", "b", eof})

	assert.Equal(t, []Candidate{{Token: "b", Count: 2}}, m.Candidates([]string{"a"}))
	assert.Equal(t, []Candidate{{Token: eof, Count: 1}, {Token: "a", Count: 1}}, m.Candidates([]string{"b"}))
	assert.Equal(t, int64(2), m.Count([]string{"a"}, "b"))

	for i := 0; i < 20; i++ {
		next, err := m.PredictToken([]string{"a"})
		require.NoError(t, err)
		assert.Equal(t, "b", next)
	}
}

func TestModel_PredictTokensWithScriptedSource(t *testing.T) {
	tokens := []string{"a", "b", "a", "b", eof}

	// Draw 1 at context "b" always picks "a", so generation only stops at the bound.
	m := trainedModel(t, 2, tokens, WithRandomSource(&sequenceSource{values: []int{1}}))
	gen, err := m.PredictTokens([]string{"a"}, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b", "a"}, gen.Tokens)
	assert.Equal(t, TerminatedByLength, gen.State)

	// Draw 0 at context "b" picks the end marker.
	m = trainedModel(t, 2, tokens, WithRandomSource(&sequenceSource{values: []int{0}}))
	text, err := m.PredictText([]string{"a"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "a b <EOF>", text)
}

func TestModel_AlternationHoldsForAnySeed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		maxLength := rapid.IntRange(1, 60).Draw(rt, "maxLength")

		m, err := NewModel(2, WithSeed(seed))
		require.NoError(rt, err)
		m.Train([]string{"a", "b", "a", "b", eof})

		gen, err := m.PredictTokens([]string{"a"}, maxLength)
		require.NoError(rt, err)
		for i := 1; i < len(gen.Tokens); i++ {
			switch gen.Tokens[i-1] {
			case "a":
				assert.Equal(rt, "b", gen.Tokens[i])
			case "b":
				assert.Contains(rt, []string{"a", eof}, gen.Tokens[i])
			}
		}
	})
}

func TestModel_EmptyTraining(t *testing.T) {
	m := trainedModel(t, 3, nil)

	next, err := m.PredictToken([]string{"any", "thing"})
	require.NoError(t, err)
	assert.Equal(t, eof, next)

	gen, err := m.PredictTokens([]string{"start"}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", eof}, gen.Tokens)
	assert.Equal(t, TerminatedByEOF, gen.State)
	assert.Nil(t, m.Entries())
	assert.True(t, m.Stats().Trained)
}

func TestModel_ShortTrainingInputYieldsEmptyTable(t *testing.T) {
	m, err := NewModel(4)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Train([]string{"too", "short"}))
	assert.Equal(t, int64(0), m.Stats().Table.TotalNGrams)
}

func TestModel_UntrainedFallsBackToEndMarker(t *testing.T) {
	m, err := NewModel(2)
	require.NoError(t, err)
	assert.False(t, m.Trained())

	next, err := m.PredictToken([]string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, eof, next)
}

func TestModel_PredictTokenRejectsWrongContextLength(t *testing.T) {
	m := trainedModel(t, 3, []string{"a", "b", "c"})

	_, err := m.PredictToken([]string{"a"})
	assert.ErrorIs(t, err, ErrContextLength)
	_, err = m.PredictToken([]string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrContextLength)
}

func TestModel_PredictTokensPreconditions(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b"})

	_, err := m.PredictTokens(nil, 10)
	assert.ErrorIs(t, err, ErrEmptySeed)

	_, err = m.PredictTokens([]string{"a"}, -1)
	assert.ErrorIs(t, err, ErrInvalidMaxLength)
}

func TestModel_PredictTokensTerminalSeeds(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b", "a"})

	gen, err := m.PredictTokens([]string{"a", eof}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", eof}, gen.Tokens)
	assert.Equal(t, TerminatedByEOF, gen.State)

	gen, err = m.PredictTokens([]string{"a", "b", "a"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, gen.Tokens)
	assert.Equal(t, TerminatedByLength, gen.State)
}

func TestModel_PredictTokensDoesNotAliasSeed(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b", "a", "b"}, WithStrategy(StrategyGreedy))
	seed := make([]string, 1, 10)
	seed[0] = "a"

	gen, err := m.PredictTokens(seed, 4)
	require.NoError(t, err)
	gen.Tokens[0] = "changed"
	assert.Equal(t, "a", seed[0])
}

func TestModel_ShortSeedUsesTrailingWindow(t *testing.T) {
	m := trainedModel(t, 3, []string{"a", "b", "c", "a", "b", "d"}, WithStrategy(StrategyGreedy))

	gen, err := m.PredictTokens([]string{"a"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, gen.Tokens)
	assert.Equal(t, TerminatedByLength, gen.State)
}

func TestModel_GreedyBreaksTiesByToken(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b", "a", "b", eof}, WithStrategy(StrategyGreedy))

	text, err := m.PredictText([]string{"a"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "a b <EOF>", text)
}

func TestModel_TrainReplacesTable(t *testing.T) {
	m := trainedModel(t, 2, []string{"a", "b"})
	assert.Equal(t, int64(1), m.Count([]string{"a"}, "b"))

	m.Train([]string{"x", "y", "z"})
	assert.Equal(t, int64(0), m.Count([]string{"a"}, "b"))
	assert.Equal(t, int64(1), m.Count([]string{"x"}, "y"))
	assert.Equal(t, int64(2), m.Stats().Table.TotalNGrams)
}

func TestModel_PredictionDoesNotMutateTable(t *testing.T) {
	m := trainedModel(t, 3, []string{"a", "b", "c", "d"})
	before := m.Stats()

	for _, ctx := range [][]string{{"x", "y"}, {"a", "x"}, {"a", "b"}} {
		_, err := m.PredictToken(ctx)
		require.NoError(t, err)
	}
	_, err := m.PredictTokens([]string{"q"}, 10)
	require.NoError(t, err)

	assert.Equal(t, before, m.Stats())
}

func TestModel_WeightedSamplingBias(t *testing.T) {
	tokens := []string{"x", "a"}
	for i := 0; i < 99; i++ {
		tokens = append(tokens, "x", "b")
	}
	m := trainedModel(t, 2, tokens, WithSeed(1))
	require.Equal(t, []Candidate{{Token: "a", Count: 1}, {Token: "b", Count: 99}}, m.Candidates([]string{"x"}))

	const trials = 20000
	hits := 0
	for i := 0; i < trials; i++ {
		next, err := m.PredictToken([]string{"x"})
		require.NoError(t, err)
		if next == "b" {
			hits++
		}
	}
	assert.InDelta(t, 0.99, float64(hits)/trials, 0.005)
}

func TestModel_BloomFilterKeepsSemantics(t *testing.T) {
	tokens := []string{"a", "b", "a", "b", eof}
	m := trainedModel(t, 2, tokens, WithBloomFilter(1000, 0.01))

	assert.Equal(t, []Candidate{{Token: "b", Count: 2}}, m.Candidates([]string{"a"}))
	next, err := m.PredictToken([]string{"never"})
	require.NoError(t, err)
	assert.Equal(t, eof, next)
}

func TestModel_Properties(t *testing.T) {
	vocabulary := []string{"a", "b", "c", "d", eof}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 5).Draw(rt, "n")
		tokens := rapid.SliceOfN(rapid.SampledFrom(vocabulary), 0, 80).Draw(rt, "tokens")

		m, err := NewModel(n, WithSeed(rapid.Uint64().Draw(rt, "seed")))
		require.NoError(rt, err)
		windows := m.Train(tokens)

		// Count conservation: one increment per window.
		want := 0
		if len(tokens) >= n {
			want = len(tokens) - n + 1
		}
		assert.Equal(rt, want, windows)
		var sum int64
		for _, entry := range m.Entries() {
			require.Len(rt, entry.Tokens, n)
			sum += entry.Count
		}
		assert.Equal(rt, int64(want), sum)

		// Lookup totality: any well-formed context yields an observed outcome or the end marker.
		context := rapid.SliceOfN(rapid.SampledFrom(append(vocabulary, "unseen")), n-1, n-1).Draw(rt, "context")
		next, err := m.PredictToken(context)
		require.NoError(rt, err)
		if next != eof {
			assert.Greater(rt, m.Count(context, next), int64(0))
		}

		// Termination: bounded by maxLength and ends at the marker or the bound.
		seed := rapid.SliceOfN(rapid.SampledFrom(vocabulary[:4]), 1, 4).Draw(rt, "seedTokens")
		maxLength := rapid.IntRange(len(seed), 50).Draw(rt, "maxLength")
		gen, err := m.PredictTokens(seed, maxLength)
		require.NoError(rt, err)
		assert.LessOrEqual(rt, len(gen.Tokens), maxLength)
		last := gen.Tokens[len(gen.Tokens)-1]
		assert.True(rt, last == eof || len(gen.Tokens) == maxLength)
		if last == eof {
			assert.Equal(rt, TerminatedByEOF, gen.State)
		} else {
			assert.Equal(rt, TerminatedByLength, gen.State)
		}
	})
}

func TestGenerationState_String(t *testing.T) {
	assert.Equal(t, "generating", Generating.String())
	assert.Equal(t, "terminated_by_eof", TerminatedByEOF.String())
	assert.Equal(t, "terminated_by_length", TerminatedByLength.String())
	assert.Equal(t, "GenerationState(9)", GenerationState(9).String())
}

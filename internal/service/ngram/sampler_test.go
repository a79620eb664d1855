package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceSource replays fixed draws, reduced modulo n
type sequenceSource struct {
	values []int
	next   int
}

func (s *sequenceSource) IntN(n int) int {
	v := s.values[s.next%len(s.values)] % n
	s.next++
	return v
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: StrategyWeighted},
		{in: "weighted", want: StrategyWeighted},
		{in: "Greedy", want: StrategyGreedy},
		{in: "beam", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownStrategy)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSampleWeighted_Boundaries(t *testing.T) {
	candidates := []Candidate{{Token: "a", Count: 1}, {Token: "b", Count: 3}}

	tests := []struct {
		draw int
		want string
	}{
		{draw: 0, want: "a"},
		{draw: 1, want: "b"},
		{draw: 3, want: "b"},
	}

	for _, tt := range tests {
		got := sampleWeighted(candidates, &sequenceSource{values: []int{tt.draw}})
		assert.Equal(t, tt.want, got, "draw %d", tt.draw)
	}
}

func TestSampleGreedy(t *testing.T) {
	assert.Equal(t, "b", sampleGreedy([]Candidate{{Token: "a", Count: 1}, {Token: "b", Count: 3}, {Token: "c", Count: 3}}))
	assert.Equal(t, "a", sampleGreedy([]Candidate{{Token: "a", Count: 2}, {Token: "b", Count: 2}}))
}

func TestNewSeededSourceIsReproducible(t *testing.T) {
	a := NewSeededSource(42)
	b := NewSeededSource(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

package ngram

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	ngrammodel "ngram-go/internal/model/ngram"
)

// DefaultMaxLength bounds generated sequences when the caller passes 0
const DefaultMaxLength = 1000

// GenerationState tracks where a generation run stopped
type GenerationState int

const (
	Generating GenerationState = iota
	TerminatedByEOF
	TerminatedByLength
)

func (s GenerationState) String() string {
	switch s {
	case Generating:
		return "generating"
	case TerminatedByEOF:
		return "terminated_by_eof"
	case TerminatedByLength:
		return "terminated_by_length"
	default:
		return fmt.Sprintf("GenerationState(%d)", int(s))
	}
}

// Generation is the result of a full-sequence prediction
type Generation struct {
	Tokens []string        // seed followed by the generated tokens
	State  GenerationState // always one of the terminated states
}

// Text joins the generated tokens with single spaces
func (g Generation) Text() string {
	return strings.Join(g.Tokens, " ")
}

// Option configures a Model
type Option func(*Model)

// WithRandomSource sets the source used for weighted sampling
func WithRandomSource(src RandomSource) Option {
	return func(m *Model) {
		if src != nil {
			m.src = src
		}
	}
}

// WithSeed makes weighted sampling reproducible
func WithSeed(seed uint64) Option {
	return func(m *Model) {
		m.src = NewSeededSource(seed)
	}
}

// WithStrategy selects how the next token is chosen among candidates
func WithStrategy(strategy Strategy) Option {
	return func(m *Model) {
		m.strategy = strategy
	}
}

// WithBloomFilter records trained contexts in a bloom filter sized for expectedItems
func WithBloomFilter(expectedItems uint, falsePositiveRate float64) Option {
	return func(m *Model) {
		m.useBloom = true
		m.bloomItems = expectedItems
		m.bloomRate = falsePositiveRate
	}
}

// Model is an order-n frequency model. It owns its table exclusively: training builds a fresh
// table and swaps it in, after which the table is only read.
type Model struct {
	n          int
	table      *NGramTrie // nil until Train runs
	strategy   Strategy
	useBloom   bool
	bloomItems uint
	bloomRate  float64
	mu         sync.RWMutex // Protects table

	src   RandomSource
	srcMu sync.Mutex // RandomSource implementations are not safe for concurrent use
}

// NewModel creates an untrained model of order n
func NewModel(n int, opts ...Option) (*Model, error) {
	if n <= 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}
	m := &Model{
		n:        n,
		strategy: StrategyWeighted,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.src == nil {
		m.src = NewSeededSource(rand.Uint64())
	}
	strategy, err := ParseStrategy(string(m.strategy))
	if err != nil {
		return nil, err
	}
	m.strategy = strategy
	return m, nil
}

// N returns the model order
func (m *Model) N() int {
	return m.n
}

// Strategy returns the sampling strategy
func (m *Model) Strategy() Strategy {
	return m.strategy
}

// Trained reports whether Train has run
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table != nil
}

// Train replaces the frequency table with counts from every width-n window of tokens and returns
// the number of windows counted. Fewer than n tokens leaves an empty table.
func (m *Model) Train(tokens []string) int {
	var table *NGramTrie
	if m.useBloom {
		table = NewNGramTrieWithBloom(m.n, true, m.bloomItems, m.bloomRate)
	} else {
		table = NewNGramTrie(m.n)
	}

	windows := m.extractNGrams(tokens)
	for _, ng := range windows {
		// Windows are exactly n long, so Insert cannot reject them.
		_ = table.Insert(ng)
	}

	m.mu.Lock()
	m.table = table
	m.mu.Unlock()

	return len(windows)
}

// extractNGrams slides a width-n window over tokens with stride 1
func (m *Model) extractNGrams(tokens []string) []ngrammodel.NGram {
	if len(tokens) < m.n {
		return nil
	}

	result := make([]ngrammodel.NGram, 0, len(tokens)-m.n+1)
	for i := 0; i <= len(tokens)-m.n; i++ {
		result = append(result, ngrammodel.NGram(tokens[i:i+m.n]))
	}
	return result
}

func (m *Model) snapshot() *NGramTrie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table
}

// Candidates returns the outcomes observed after context in ascending token order
func (m *Model) Candidates(context []string) []Candidate {
	table := m.snapshot()
	if table == nil {
		return nil
	}
	return table.Candidates(context)
}

// Count returns the frequency of outcome after context
func (m *Model) Count(context []string, outcome string) int64 {
	table := m.snapshot()
	if table == nil || len(context) != m.n-1 {
		return 0
	}
	ng := make([]string, 0, m.n)
	ng = append(append(ng, context...), outcome)
	return table.GetCount(ng)
}

// Entries returns every counted n-gram; nil before training
func (m *Model) Entries() []NGramWithCount {
	table := m.snapshot()
	if table == nil {
		return nil
	}
	return table.Entries()
}

// PredictToken samples the token following a context of exactly n-1 tokens. Contexts never seen in
// training, and an untrained model, yield the end-of-sequence marker.
func (m *Model) PredictToken(context []string) (string, error) {
	if len(context) != m.n-1 {
		return "", fmt.Errorf("%w: got %d tokens, want %d", ErrContextLength, len(context), m.n-1)
	}
	return m.next(m.snapshot(), context), nil
}

// PredictTokens extends seed one token at a time until the end-of-sequence marker is produced or
// the sequence holds maxLength tokens. Each step conditions on the trailing min(n-1, len) tokens.
// A maxLength of 0 selects DefaultMaxLength.
func (m *Model) PredictTokens(seed []string, maxLength int) (Generation, error) {
	if len(seed) == 0 {
		return Generation{}, ErrEmptySeed
	}
	if maxLength < 0 {
		return Generation{}, fmt.Errorf("%w: got %d", ErrInvalidMaxLength, maxLength)
	}
	if maxLength == 0 {
		maxLength = DefaultMaxLength
	}

	table := m.snapshot()
	capacity := maxLength
	if len(seed) > capacity {
		capacity = len(seed)
	}
	tokens := make(ngrammodel.Context, len(seed), capacity)
	copy(tokens, seed)

	state := Generating
	for state == Generating {
		switch {
		case tokens[len(tokens)-1] == ngrammodel.EndOfSequence:
			state = TerminatedByEOF
		case len(tokens) >= maxLength:
			state = TerminatedByLength
		default:
			tokens = append(tokens, m.next(table, tokens.Trailing(m.n-1)))
		}
	}

	return Generation{Tokens: tokens, State: state}, nil
}

// PredictText runs PredictTokens and joins the result with spaces
func (m *Model) PredictText(seed []string, maxLength int) (string, error) {
	gen, err := m.PredictTokens(seed, maxLength)
	if err != nil {
		return "", err
	}
	return gen.Text(), nil
}

// next picks the token following context, which holds between 1 and n-1 tokens
func (m *Model) next(table *NGramTrie, context []string) string {
	if table == nil {
		return ngrammodel.EndOfSequence
	}
	candidates := table.Candidates(context)
	if len(candidates) == 0 {
		return ngrammodel.EndOfSequence
	}

	if m.strategy == StrategyGreedy {
		return sampleGreedy(candidates)
	}

	m.srcMu.Lock()
	defer m.srcMu.Unlock()
	return sampleWeighted(candidates, m.src)
}

// Stats returns statistics about the model
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		N:        m.n,
		Strategy: string(m.strategy),
	}
	table := m.snapshot()
	if table == nil {
		return stats
	}
	stats.Trained = true
	stats.Table = table.MemoryStats()
	return stats
}

// ModelStats contains statistics about an n-gram model
type ModelStats struct {
	N        int             `json:"n"`
	Strategy string          `json:"strategy"`
	Trained  bool            `json:"trained"`
	Table    TrieMemoryStats `json:"table"`
}

package ngram

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/samber/lo"
)

// TrieNode represents a node in the n-gram trie
type TrieNode struct {
	tokenID  uint32               // Token ID at this node
	count    int64                // Training windows whose path passes through this node
	children map[uint32]*TrieNode // Children indexed by token ID
}

// NewTrieNode creates a new trie node
func NewTrieNode(tokenID uint32) *TrieNode {
	return &TrieNode{
		tokenID:  tokenID,
		count:    0,
		children: make(map[uint32]*TrieNode),
	}
}

// NGramTrie is the frequency table: a trie of fixed depth whose first depth-1 levels are
// context positions and whose last level holds outcome counts. Tokens are interned.
//
// The trie does no locking of its own; Model guards it.
type NGramTrie struct {
	depth          int                // n, the length of every stored n-gram
	root           *TrieNode          // Root of the trie
	tokenToID      map[string]uint32  // String to token ID mapping
	idToToken      []string           // Token ID to string reverse mapping
	nextID         uint32             // Next available token ID
	totalNGrams    int64              // Sum of all leaf counts
	distinctNGrams int64              // Number of leaves
	contexts       int64              // Number of distinct contexts (nodes at depth-1)
	contextFilter  *bloom.BloomFilter // Optional filter over context keys for fast negative probes
}

// Candidate is an outcome observed after a context together with its frequency
type Candidate struct {
	Token string `json:"token"`
	Count int64  `json:"count"`
}

// NGramWithCount represents an n-gram with its frequency
type NGramWithCount struct {
	Tokens []string `json:"tokens"`
	Count  int64    `json:"count"`
}

// NewNGramTrie creates a new n-gram trie of the given depth without a bloom filter
func NewNGramTrie(depth int) *NGramTrie {
	return NewNGramTrieWithBloom(depth, false, 0, 0)
}

// NewNGramTrieWithBloom creates a new n-gram trie. When useBloom is set, every inserted context is
// recorded in a bloom filter so that probes for never-seen contexts return without walking the trie.
func NewNGramTrieWithBloom(depth int, useBloom bool, expectedItems uint, falsePositiveRate float64) *NGramTrie {
	trie := &NGramTrie{
		depth:     depth,
		root:      NewTrieNode(0),      // Root has ID 0 (sentinel)
		tokenToID: make(map[string]uint32),
		idToToken: []string{"<ROOT>"}, // ID 0 is reserved for root
		nextID:    1,
	}

	if useBloom {
		if expectedItems == 0 {
			expectedItems = 100000
		}
		if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
			falsePositiveRate = 0.01
		}
		trie.contextFilter = bloom.NewWithEstimates(expectedItems, falsePositiveRate)
	}

	return trie
}

// internToken converts a token string to its ID, creating a new ID if needed
func (t *NGramTrie) internToken(token string) uint32 {
	if id, exists := t.tokenToID[token]; exists {
		return id
	}

	id := t.nextID
	t.nextID++
	t.tokenToID[token] = id
	t.idToToken = append(t.idToToken, token)
	return id
}

// getToken returns the token string for a given ID
func (t *NGramTrie) getToken(id uint32) string {
	if int(id) < len(t.idToToken) {
		return t.idToToken[id]
	}
	return ""
}

// Insert increments the count of an n-gram. This is the only path that creates nodes.
func (t *NGramTrie) Insert(tokens []string) error {
	if len(tokens) != t.depth {
		return fmt.Errorf("%w: got %d tokens, want %d", ErrNGramLength, len(tokens), t.depth)
	}

	current := t.root
	current.count++
	for i, token := range tokens {
		tokenID := t.internToken(token)
		child, exists := current.children[tokenID]
		if !exists {
			child = NewTrieNode(tokenID)
			current.children[tokenID] = child
			switch i {
			case t.depth - 2:
				t.contexts++
			case t.depth - 1:
				t.distinctNGrams++
			}
		}
		child.count++
		current = child
	}
	t.totalNGrams++

	if t.contextFilter != nil {
		t.contextFilter.AddString(t.tokensToKey(tokens[:t.depth-1]))
	}
	return nil
}

// tokensToKey creates a unique string key for a token run (for the bloom filter)
func (t *NGramTrie) tokensToKey(tokens []string) string {
	h := fnv.New64a()
	for _, token := range tokens {
		h.Write([]byte(token))
		h.Write([]byte{0}) // Separator
	}
	return string(h.Sum(nil))
}

// find walks the trie along tokens without creating anything
func (t *NGramTrie) find(tokens []string) (*TrieNode, bool) {
	current := t.root
	for _, token := range tokens {
		id, exists := t.tokenToID[token]
		if !exists {
			return nil, false // Token never seen
		}
		child, exists := current.children[id]
		if !exists {
			return nil, false
		}
		current = child
	}
	return current, true
}

// GetCount returns how many training windows start with tokens. For a full n-gram this is its
// frequency; for a shorter prefix it is the number of windows sharing that prefix.
func (t *NGramTrie) GetCount(tokens []string) int64 {
	if len(tokens) == 0 || len(tokens) > t.depth {
		return 0
	}
	node, ok := t.find(tokens)
	if !ok {
		return 0
	}
	return node.count
}

// Candidates returns the tokens that followed context, sorted ascending by token value.
// A full-length context yields outcome counts; a shorter one yields the next context position
// weighted by the windows passing through it. Unknown contexts yield nil and leave the trie untouched.
func (t *NGramTrie) Candidates(context []string) []Candidate {
	if len(context) >= t.depth {
		return nil
	}
	if t.contextFilter != nil && len(context) == t.depth-1 &&
		!t.contextFilter.TestString(t.tokensToKey(context)) {
		return nil
	}

	node, ok := t.find(context)
	if !ok || len(node.children) == 0 {
		return nil
	}

	candidates := lo.MapToSlice(node.children, func(id uint32, child *TrieNode) Candidate {
		return Candidate{Token: t.getToken(id), Count: child.count}
	})
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}

// Entries returns every stored n-gram with its count, sorted lexicographically by tokens
func (t *NGramTrie) Entries() []NGramWithCount {
	var results []NGramWithCount
	t.collectNGrams(t.root, make([]uint32, 0, t.depth), &results)
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].Tokens, results[j].Tokens
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return results
}

// collectNGrams recursively collects all full-depth n-grams below a node
func (t *NGramTrie) collectNGrams(node *TrieNode, path []uint32, results *[]NGramWithCount) {
	if len(path) == t.depth {
		tokens := make([]string, len(path))
		for i, id := range path {
			tokens[i] = t.getToken(id)
		}
		*results = append(*results, NGramWithCount{
			Tokens: tokens,
			Count:  node.count,
		})
		return
	}

	for tokenID, child := range node.children {
		t.collectNGrams(child, append(path, tokenID), results)
	}
}

// VocabularySize returns the number of unique tokens
func (t *NGramTrie) VocabularySize() int {
	return len(t.tokenToID)
}

// TotalNGrams returns the sum of all n-gram counts, one per training window
func (t *NGramTrie) TotalNGrams() int64 {
	return t.totalNGrams
}

// GetVocabulary returns all unique tokens in sorted order
func (t *NGramTrie) GetVocabulary() []string {
	vocab := lo.Keys(t.tokenToID)
	sort.Strings(vocab)
	return vocab
}

// MemoryStats returns memory usage statistics
func (t *NGramTrie) MemoryStats() TrieMemoryStats {
	var nodeCount int64
	t.countNodes(t.root, &nodeCount)

	// Rough memory estimation
	vocabMemory := int64(0)
	for token := range t.tokenToID {
		vocabMemory += int64(len(token)) + 16 // String header + content
	}

	var filterBytes int64
	if t.contextFilter != nil {
		filterBytes = int64(t.contextFilter.Cap() / 8)
	}

	return TrieMemoryStats{
		VocabularySize:    len(t.tokenToID),
		TotalNodes:        nodeCount,
		Contexts:          t.contexts,
		DistinctNGrams:    t.distinctNGrams,
		TotalNGrams:       t.totalNGrams,
		VocabMemoryBytes:  vocabMemory,
		NodeMemoryBytes:   nodeCount * 56, // Approx: tokenID(4) + count(8) + map(24) + pointers(20)
		FilterMemoryBytes: filterBytes,
	}
}

// countNodes recursively counts all nodes in the trie
func (t *NGramTrie) countNodes(node *TrieNode, count *int64) {
	*count++
	for _, child := range node.children {
		t.countNodes(child, count)
	}
}

// TrieMemoryStats contains size and memory usage statistics
type TrieMemoryStats struct {
	VocabularySize    int   `json:"vocabulary_size"`
	TotalNodes        int64 `json:"total_nodes"`
	Contexts          int64 `json:"contexts"`
	DistinctNGrams    int64 `json:"distinct_ngrams"`
	TotalNGrams       int64 `json:"total_ngrams"`
	VocabMemoryBytes  int64 `json:"vocab_memory_bytes"`
	NodeMemoryBytes   int64 `json:"node_memory_bytes"`
	FilterMemoryBytes int64 `json:"filter_memory_bytes"`
}

// TotalMemoryBytes returns the estimated total memory usage
func (s TrieMemoryStats) TotalMemoryBytes() int64 {
	return s.VocabMemoryBytes + s.NodeMemoryBytes + s.FilterMemoryBytes
}

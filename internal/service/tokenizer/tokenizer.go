package tokenizer

import (
	"context"
	"sort"
	"strings"
)

// Tokenizer turns raw corpus content into an ordered sequence of tokens
type Tokenizer interface {
	// Tokenize converts the source into tokens ready for n-gram counting
	Tokenize(ctx context.Context, source []byte) ([]string, error)

	// Name returns the registry name of this tokenizer
	Name() string
}

// TokenizerRegistry manages tokenizers by name and by file extension
type TokenizerRegistry struct {
	tokenizers map[string]Tokenizer
	extensions map[string]string // file extension -> tokenizer name
}

// NewTokenizerRegistry creates a new tokenizer registry
func NewTokenizerRegistry() *TokenizerRegistry {
	return &TokenizerRegistry{
		tokenizers: make(map[string]Tokenizer),
		extensions: make(map[string]string),
	}
}

// NewDefaultRegistry returns a registry with the prose tokenizer registered for plain text files
func NewDefaultRegistry(rules Rules) *TokenizerRegistry {
	registry := NewTokenizerRegistry()
	registry.Register(NewTextTokenizer(rules), []string{".txt", ".text", ".md"})
	return registry
}

// Register adds a tokenizer and binds it to the given file extensions
func (tr *TokenizerRegistry) Register(tokenizer Tokenizer, extensions []string) {
	tr.tokenizers[tokenizer.Name()] = tokenizer
	for _, ext := range extensions {
		tr.extensions[strings.ToLower(ext)] = tokenizer.Name()
	}
}

// GetTokenizer returns the tokenizer registered under name
func (tr *TokenizerRegistry) GetTokenizer(name string) (Tokenizer, bool) {
	tokenizer, ok := tr.tokenizers[name]
	return tokenizer, ok
}

// GetTokenizerByExtension returns the tokenizer for a given file extension
func (tr *TokenizerRegistry) GetTokenizerByExtension(extension string) (Tokenizer, bool) {
	name, ok := tr.extensions[strings.ToLower(extension)]
	if !ok {
		return nil, false
	}
	return tr.GetTokenizer(name)
}

// Names returns the registered tokenizer names in sorted order
func (tr *TokenizerRegistry) Names() []string {
	names := make([]string, 0, len(tr.tokenizers))
	for name := range tr.tokenizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

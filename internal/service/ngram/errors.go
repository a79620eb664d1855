package ngram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder is returned when a model is constructed with n <= 1
	ErrInvalidOrder = errors.New("n-gram order must be greater than 1")
	// ErrEmptySeed is returned when generation is started without any seed tokens
	ErrEmptySeed = errors.New("seed context must not be empty")
	// ErrContextLength is returned when a single-token prediction gets a context that is not n-1 long
	ErrContextLength = errors.New("context length must be n-1")
	// ErrInvalidMaxLength is returned for a negative generation bound
	ErrInvalidMaxLength = errors.New("max length must be positive")
	// ErrNGramLength is returned when inserting a token run whose length differs from the table depth
	ErrNGramLength = errors.New("n-gram length does not match table depth")
	// ErrModelNotFound is returned by the service for an unknown model id
	ErrModelNotFound = errors.New("model not found")
	// ErrUnknownStrategy is returned for an unrecognised sampling strategy name
	ErrUnknownStrategy = errors.New("unknown sampling strategy")
	// ErrUnknownTokenizer is returned when a request names a tokenizer that is not registered
	ErrUnknownTokenizer = errors.New("unknown tokenizer")
	// ErrUnknownCorpus is returned when a request names a corpus that is not configured
	ErrUnknownCorpus = errors.New("unknown corpus")
	// ErrCorpusNotAllowed is returned when a client asks for a corpus file outside the corpus root
	ErrCorpusNotAllowed = errors.New("corpus path not allowed")
)

// CorpusError reports a failure to read or decode a training corpus
type CorpusError struct {
	Path string
	Op   string // "read", "decode" or "tokenize"
	Err  error
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("corpus %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CorpusError) Unwrap() error {
	return e.Err
}

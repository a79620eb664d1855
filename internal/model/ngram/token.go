package ngram

import "strings"

const (
	// EndOfSequence marks a paragraph break in training text and stops generation when produced
	EndOfSequence = "<EOF>"
	// Apostrophe is split out of words so that possessives and contractions become their own token
	Apostrophe = "’"
)

// Context is the ordered run of tokens preceding a prediction
type Context []string

// Equal reports whether both contexts hold the same tokens in the same order
func (c Context) Equal(other Context) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Trailing returns the last k tokens of the context, or all of them when it is shorter
func (c Context) Trailing(k int) Context {
	if k <= 0 {
		return Context{}
	}
	if k >= len(c) {
		return c
	}
	return c[len(c)-k:]
}

// String returns the context as a space-separated string
func (c Context) String() string {
	return strings.Join(c, " ")
}

// NGram represents an n-gram (sequence of n tokens)
type NGram []string

// String returns the n-gram as a space-separated string
func (ng NGram) String() string {
	return strings.Join(ng, " ")
}

// Context returns the context (all tokens except the last one)
func (ng NGram) Context() Context {
	if len(ng) <= 1 {
		return Context{}
	}
	return Context(ng[:len(ng)-1])
}

// Outcome returns the last token in the n-gram
func (ng NGram) Outcome() string {
	if len(ng) == 0 {
		return ""
	}
	return ng[len(ng)-1]
}

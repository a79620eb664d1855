package tokenizer

import (
	"context"
	"strings"

	"ngram-go/internal/model/ngram"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProseTokenizerName is the registry name of the natural language tokenizer
const ProseTokenizerName = "prose"

// DefaultStrip holds the punctuation deleted from prose before splitting.
// Carriage returns are dropped too so CRLF paragraph breaks still match "\n\n".
const DefaultStrip = ".,!?“”():_;\r"

// Replacement rewrites every occurrence of Old with New
type Replacement struct {
	Old string `yaml:"old" json:"old"`
	New string `yaml:"new" json:"new"`
}

// Rules configures text normalization
type Rules struct {
	Strip        string        `yaml:"strip" json:"strip"`               // characters deleted outright
	Replacements []Replacement `yaml:"replacements" json:"replacements"` // applied in order after stripping
}

// DefaultRules returns the normalization used for English prose corpora
func DefaultRules() Rules {
	return Rules{
		Strip: DefaultStrip,
		Replacements: []Replacement{
			{Old: "—", New: " "},
			{Old: ngram.Apostrophe, New: " " + ngram.Apostrophe + " "},
			{Old: "\n\n", New: " " + ngram.EndOfSequence + " "},
		},
	}
}

// TextTokenizer lowercases text, removes punctuation, applies replacements and splits on whitespace
type TextTokenizer struct {
	strip        map[rune]struct{}
	replacements []Replacement
}

// NewTextTokenizer creates a tokenizer for the given rules
func NewTextTokenizer(rules Rules) *TextTokenizer {
	strip := make(map[rune]struct{}, len(rules.Strip))
	for _, r := range rules.Strip {
		strip[r] = struct{}{}
	}
	replacements := make([]Replacement, 0, len(rules.Replacements))
	for _, rep := range rules.Replacements {
		if rep.Old == "" {
			continue
		}
		replacements = append(replacements, rep)
	}
	return &TextTokenizer{
		strip:        strip,
		replacements: replacements,
	}
}

func (t *TextTokenizer) Tokenize(ctx context.Context, source []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return strings.Fields(t.Normalize(string(source))), nil
}

// Normalize returns the text after lowercasing, stripping and replacement, before splitting
func (t *TextTokenizer) Normalize(text string) string {
	// Casers carry state, so one is built per call.
	text = cases.Lower(language.Und).String(text)

	if len(t.strip) > 0 {
		text = strings.Map(func(r rune) rune {
			if _, ok := t.strip[r]; ok {
				return -1
			}
			return r
		}, text)
	}

	for _, rep := range t.replacements {
		text = strings.ReplaceAll(text, rep.Old, rep.New)
	}
	return text
}

func (t *TextTokenizer) Name() string {
	return ProseTokenizerName
}

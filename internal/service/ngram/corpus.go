package ngram

import (
	"bytes"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCorpus reads a training corpus from disk and returns it as UTF-8. encodingName takes any
// WHATWG label ("utf-8", "windows-1252", "iso-8859-1", ...); empty means UTF-8.
func ReadCorpus(path, encodingName string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &CorpusError{Path: path, Op: "read", Err: err}
	}
	return DecodeCorpus(path, raw, encodingName)
}

// DecodeCorpus converts raw corpus bytes in the named encoding to UTF-8
func DecodeCorpus(path string, raw []byte, encodingName string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(encodingName))
	if name == "" || name == "utf-8" || name == "utf8" {
		return bytes.TrimPrefix(raw, utf8BOM), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, &CorpusError{Path: path, Op: "decode", Err: err}
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, &CorpusError{Path: path, Op: "decode", Err: err}
	}
	return decoded, nil
}

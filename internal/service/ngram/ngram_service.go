package ngram

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ngram-go/internal/config"
	"ngram-go/internal/metrics"
	"ngram-go/internal/service/tokenizer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrainRequest describes one training run. The source is the configured corpus named by Corpus,
// else the file at CorpusPath, else Text. Zero values fall back to the corpus entry and then to
// the service defaults.
type TrainRequest struct {
	Name       string  `json:"name"`
	N          int     `json:"n"`
	Corpus     string  `json:"corpus,omitempty"`
	CorpusPath string  `json:"corpus_path,omitempty"`
	Text       string  `json:"text,omitempty"`
	Encoding   string  `json:"encoding,omitempty"`
	Tokenizer  string  `json:"tokenizer,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	SeedText   string  `json:"seed_text,omitempty"`
}

// GenerateRequest describes one generation run. Seed wins over SeedText; with neither, the
// model's default seed is used.
type GenerateRequest struct {
	Seed      []string `json:"seed,omitempty"`
	SeedText  string   `json:"seed_text,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

// GenerateResult is the outcome of a generation run
type GenerateResult struct {
	ModelID   string   `json:"model_id"`
	Text      string   `json:"text"`
	Tokens    []string `json:"tokens"`
	Generated int      `json:"generated"`
	State     string   `json:"state"`
}

// ModelInfo describes a trained model held by the service. DefaultSeed is only reported for
// inline text so file contents are not echoed back.
type ModelInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Source      string     `json:"source"`
	TokenCount  int        `json:"token_count"`
	Windows     int        `json:"windows"`
	DefaultSeed []string   `json:"default_seed,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Stats       ModelStats `json:"stats"`
}

type modelEntry struct {
	seq         uint64 // registration order
	info        ModelInfo
	defaultSeed []string
	model     *Model
	tokenizer tokenizer.Tokenizer
}

// NGramService trains models from corpora and serves generation requests against them.
// Models live in memory only.
type NGramService struct {
	models   map[string]*modelEntry // model id -> entry
	nextSeq  uint64
	registry *tokenizer.TokenizerRegistry
	defaults config.NGramConfig
	catalog  *config.Config // configured corpora
	metrics  *metrics.Collector
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewNGramService creates a service using the given tokenizer registry and model defaults
func NewNGramService(registry *tokenizer.TokenizerRegistry, defaults config.NGramConfig, collector *metrics.Collector, logger *zap.Logger) *NGramService {
	if registry == nil {
		registry = tokenizer.NewDefaultRegistry(tokenizer.DefaultRules())
	}
	if defaults.N == 0 {
		defaults.N = 3
	}
	return &NGramService{
		models:   make(map[string]*modelEntry),
		registry: registry,
		defaults: defaults,
		catalog:  &config.Config{NGram: defaults},
		metrics:  collector,
		logger:   logger,
	}
}

// NewNGramServiceFromConfig wires a service from application configuration
func NewNGramServiceFromConfig(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *NGramService {
	ns := NewNGramService(tokenizer.NewDefaultRegistry(cfg.Tokenizer), cfg.NGram, collector, logger)
	ns.catalog = cfg
	return ns
}

// TrainFromClient trains on behalf of a network client. A CorpusPath must resolve to a file below
// the configured corpus root; configured corpora and inline text are always accepted.
func (ns *NGramService) TrainFromClient(ctx context.Context, req TrainRequest) (*ModelInfo, error) {
	if req.Corpus == "" && req.CorpusPath != "" {
		path, err := ns.confineCorpusPath(req.CorpusPath)
		if err != nil {
			ns.metrics.RecordTraining("rejected", 0)
			ns.logger.Warn("Rejected corpus path",
				zap.String("corpus", req.CorpusPath),
				zap.Error(err))
			return nil, err
		}
		req.CorpusPath = path
	}
	return ns.Train(ctx, req)
}

// confineCorpusPath resolves path against the corpus root, relative paths included, and rejects
// anything that lands outside it after cleaning and symlink resolution.
func (ns *NGramService) confineCorpusPath(path string) (string, error) {
	if ns.defaults.CorpusRoot == "" {
		return "", fmt.Errorf("%w: no corpus root configured", ErrCorpusNotAllowed)
	}
	root, err := filepath.Abs(ns.defaults.CorpusRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve corpus root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		full = resolved
	}

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrCorpusNotAllowed, path)
	}
	return full, nil
}

// resolveCorpus fills the request from the configured corpus it names
func (ns *NGramService) resolveCorpus(req TrainRequest) (TrainRequest, error) {
	corpus, err := ns.catalog.GetCorpus(req.Corpus)
	if err != nil {
		return req, fmt.Errorf("%w: %s", ErrUnknownCorpus, req.Corpus)
	}
	req.CorpusPath = corpus.Path
	if req.Name == "" {
		req.Name = corpus.Name
	}
	if req.N == 0 {
		req.N = corpus.N
	}
	if req.Encoding == "" {
		req.Encoding = corpus.Encoding
	}
	if req.SeedText == "" {
		req.SeedText = corpus.SeedText
	}
	return req, nil
}

// Train builds a new model and registers it under a fresh id
func (ns *NGramService) Train(ctx context.Context, req TrainRequest) (*ModelInfo, error) {
	info, err := ns.train(ctx, req)
	if err != nil {
		ns.metrics.RecordTraining("failure", 0)
		ns.logger.Error("Training failed",
			zap.String("name", req.Name),
			zap.String("corpus", req.CorpusPath),
			zap.Error(err))
		return nil, err
	}
	ns.metrics.RecordTraining("success", info.Windows)
	return info, nil
}

func (ns *NGramService) train(ctx context.Context, req TrainRequest) (*ModelInfo, error) {
	if req.Corpus != "" {
		var err error
		if req, err = ns.resolveCorpus(req); err != nil {
			return nil, err
		}
	}

	n := req.N
	if n == 0 {
		n = ns.defaults.N
	}

	tok, err := ns.resolveTokenizer(req)
	if err != nil {
		return nil, err
	}

	source := "inline"
	content := []byte(req.Text)
	if req.CorpusPath != "" {
		source = req.CorpusPath
		encoding := req.Encoding
		if encoding == "" {
			encoding = ns.defaults.Encoding
		}
		content, err = ReadCorpus(req.CorpusPath, encoding)
		if err != nil {
			return nil, err
		}
	}

	tokens, err := tok.Tokenize(ctx, content)
	if err != nil {
		return nil, &CorpusError{Path: source, Op: "tokenize", Err: err}
	}

	model, err := NewModel(n, ns.modelOptions(req)...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	windows := model.Train(tokens)
	if len(tokens) < n {
		ns.logger.Warn("Corpus shorter than model order, table is empty",
			zap.String("source", source),
			zap.Int("tokens", len(tokens)),
			zap.Int("n", n))
	}

	seed, err := ns.defaultSeed(ctx, tok, req.SeedText, tokens, n)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(source)
	}

	entry := &modelEntry{
		info: ModelInfo{
			ID:         uuid.NewString(),
			Name:       name,
			Source:     source,
			TokenCount: len(tokens),
			Windows:    windows,
			CreatedAt:  time.Now(),
			Stats:      model.Stats(),
		},
		defaultSeed: seed,
		model:       model,
		tokenizer:   tok,
	}
	if req.CorpusPath == "" {
		entry.info.DefaultSeed = seed
	}

	ns.mu.Lock()
	ns.nextSeq++
	entry.seq = ns.nextSeq
	ns.models[entry.info.ID] = entry
	ns.mu.Unlock()

	ns.logger.Info("Trained n-gram model",
		zap.String("id", entry.info.ID),
		zap.String("name", name),
		zap.String("source", source),
		zap.Int("n", n),
		zap.Int("tokens", len(tokens)),
		zap.Int("windows", windows),
		zap.Int("vocabulary", entry.info.Stats.Table.VocabularySize),
		zap.Duration("elapsed", time.Since(start)))

	info := entry.info
	return &info, nil
}

func (ns *NGramService) resolveTokenizer(req TrainRequest) (tokenizer.Tokenizer, error) {
	if req.Tokenizer != "" {
		tok, ok := ns.registry.GetTokenizer(req.Tokenizer)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTokenizer, req.Tokenizer)
		}
		return tok, nil
	}
	if req.CorpusPath != "" {
		if tok, ok := ns.registry.GetTokenizerByExtension(filepath.Ext(req.CorpusPath)); ok {
			return tok, nil
		}
	}
	tok, ok := ns.registry.GetTokenizer(tokenizer.ProseTokenizerName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTokenizer, tokenizer.ProseTokenizerName)
	}
	return tok, nil
}

func (ns *NGramService) modelOptions(req TrainRequest) []Option {
	strategy := req.Strategy
	if strategy == "" {
		strategy = ns.defaults.Strategy
	}

	opts := []Option{WithStrategy(Strategy(strategy))}
	switch {
	case req.Seed != nil:
		opts = append(opts, WithSeed(*req.Seed))
	case ns.defaults.Seed != 0:
		opts = append(opts, WithSeed(ns.defaults.Seed))
	}
	if ns.defaults.UseBloom {
		opts = append(opts, WithBloomFilter(ns.defaults.BloomExpectedItems, ns.defaults.BloomFalsePositiveRate))
	}
	return opts
}

// defaultSeed picks the seed used when a generation request carries none: the tokenized seed text
// when configured, otherwise the first n-1 training tokens.
func (ns *NGramService) defaultSeed(ctx context.Context, tok tokenizer.Tokenizer, seedText string, tokens []string, n int) ([]string, error) {
	if seedText == "" {
		seedText = ns.defaults.SeedText
	}
	if seedText != "" {
		seed, err := tok.Tokenize(ctx, []byte(seedText))
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize seed text: %w", err)
		}
		if len(seed) > 0 {
			return seed, nil
		}
	}
	k := n - 1
	if len(tokens) < k {
		k = len(tokens)
	}
	return append([]string(nil), tokens[:k]...), nil
}

// Generate produces text from a trained model
func (ns *NGramService) Generate(ctx context.Context, id string, req GenerateRequest) (*GenerateResult, error) {
	entry, err := ns.get(id)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if len(seed) == 0 && req.SeedText != "" {
		seed, err = entry.tokenizer.Tokenize(ctx, []byte(req.SeedText))
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize seed text: %w", err)
		}
	}
	if len(seed) == 0 {
		seed = entry.defaultSeed
	}

	maxLength := req.MaxLength
	if maxLength == 0 {
		maxLength = ns.defaults.MaxLength
	}

	gen, err := entry.model.PredictTokens(seed, maxLength)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	generated := len(gen.Tokens) - len(seed)
	ns.metrics.RecordGeneration(gen.State.String(), generated)
	ns.logger.Debug("Generated text",
		zap.String("id", id),
		zap.Int("seed_tokens", len(seed)),
		zap.Int("generated", generated),
		zap.String("state", gen.State.String()))

	return &GenerateResult{
		ModelID:   id,
		Text:      gen.Text(),
		Tokens:    gen.Tokens,
		Generated: generated,
		State:     gen.State.String(),
	}, nil
}

// GetModel returns information about a trained model
func (ns *NGramService) GetModel(id string) (*ModelInfo, error) {
	entry, err := ns.get(id)
	if err != nil {
		return nil, err
	}
	info := entry.info
	return &info, nil
}

// FindByName returns the most recently trained model with the given name
func (ns *NGramService) FindByName(name string) (*ModelInfo, error) {
	var found *ModelInfo
	infos := ns.List()
	for i := range infos {
		if infos[i].Name == name {
			found = &infos[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return found, nil
}

// List returns all trained models in the order they were trained
func (ns *NGramService) List() []ModelInfo {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	entries := make([]*modelEntry, 0, len(ns.models))
	for _, entry := range ns.models {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	infos := make([]ModelInfo, len(entries))
	for i, entry := range entries {
		infos[i] = entry.info
	}
	return infos
}

// Delete drops a trained model
func (ns *NGramService) Delete(id string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, exists := ns.models[id]; !exists {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	delete(ns.models, id)
	ns.logger.Info("Deleted n-gram model", zap.String("id", id))
	return nil
}

// TrainCorpora trains every configured corpus, logging and skipping the ones that fail
func (ns *NGramService) TrainCorpora(ctx context.Context, corpora []config.Corpus) int {
	trained := 0
	for _, corpus := range corpora {
		_, err := ns.Train(ctx, TrainRequest{
			Name:       corpus.Name,
			N:          corpus.N,
			CorpusPath: corpus.Path,
			Encoding:   corpus.Encoding,
			SeedText:   corpus.SeedText,
		})
		if err != nil {
			ns.logger.Warn("Skipping corpus", zap.String("name", corpus.Name), zap.Error(err))
			continue
		}
		trained++
	}
	return trained
}

func (ns *NGramService) get(id string) (*modelEntry, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	entry, exists := ns.models[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return entry, nil
}

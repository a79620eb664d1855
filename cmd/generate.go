package main

import (
	"fmt"

	"ngram-go/internal/service/ngram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateOptions struct {
	n         int
	maxLength int
	seed      uint64
	seedText  string
	strategy  string
	encoding  string
	showState bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <corpus>",
		Short: "Train a model on a corpus file and print generated text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.n, "n", "n", 0, "N-gram order (default from config)")
	flags.IntVarP(&opts.maxLength, "max-length", "m", 0, "Maximum number of output tokens (default from config)")
	flags.Uint64Var(&opts.seed, "seed", 0, "Random seed for reproducible output")
	flags.StringVar(&opts.seedText, "seed-text", "", "Text whose tokens start the generation")
	flags.StringVar(&opts.strategy, "strategy", "", "Sampling strategy: weighted or greedy")
	flags.StringVar(&opts.encoding, "encoding", "", "Corpus text encoding, e.g. utf-8 or windows-1252")
	flags.BoolVar(&opts.showState, "show-state", false, "Print how generation terminated on stderr")

	return cmd
}

func runGenerate(cmd *cobra.Command, corpusPath string, opts *generateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the generated text
	logger, err := newLogger(cfg, "stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	service := ngram.NewNGramServiceFromConfig(cfg, nil, logger)

	req := ngram.TrainRequest{
		Name:       corpusPath,
		N:          opts.n,
		CorpusPath: corpusPath,
		Encoding:   opts.encoding,
		Strategy:   opts.strategy,
		SeedText:   opts.seedText,
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.seed
		req.Seed = &seed
	}

	ctx := cmd.Context()
	info, err := service.Train(ctx, req)
	if err != nil {
		return err
	}
	logger.Debug("Model trained", zap.String("id", info.ID), zap.Int("windows", info.Windows))

	result, err := service.Generate(ctx, info.ID, ngram.GenerateRequest{MaxLength: opts.maxLength})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	if opts.showState {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s after %d generated tokens\n", result.State, result.Generated)
	}
	return nil
}

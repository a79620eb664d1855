package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ngram-go/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type NGramServer struct {
	server       *mcp.Server
	ngramService *ngram.NGramService
	logger       *zap.Logger
	handler      *mcp.StreamableHTTPHandler
}

type TrainModelParams struct {
	Name       string `json:"name,omitempty" jsonschema:"a name for the trained model"`
	N          int    `json:"n,omitempty" jsonschema:"the n-gram order, at least 2"`
	Corpus     string `json:"corpus,omitempty" jsonschema:"name of a corpus configured on the server"`
	CorpusPath string `json:"corpus_path,omitempty" jsonschema:"path of a text corpus below the server's corpus root"`
	Text       string `json:"text,omitempty" jsonschema:"inline training text, used when corpus_path is empty"`
	Strategy   string `json:"strategy,omitempty" jsonschema:"sampling strategy: weighted or greedy"`
}

type GenerateTextParams struct {
	ModelID   string `json:"model_id" jsonschema:"id of a trained model"`
	SeedText  string `json:"seed_text,omitempty" jsonschema:"text whose tokens start the generation"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"maximum number of tokens in the output"`
}

type ListModelsParams struct{}

func NewNGramServer(ngramService *ngram.NGramService, logger *zap.Logger) *NGramServer {
	server := &NGramServer{
		ngramService: ngramService,
		logger:       logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "NGramText",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "trainModel",
		Description: "Train an n-gram model from a corpus file or inline text. Returns the model id and training statistics",
	}, server.handleTrainModel)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "generateText",
		Description: "Generate text from a trained n-gram model, optionally starting from seed text",
	}, server.handleGenerateText)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "listModels",
		Description: "List the trained n-gram models",
	}, server.handleListModels)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func (s *NGramServer) handleTrainModel(ctx context.Context, req *mcp.CallToolRequest, args TrainModelParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling trainModel request", zap.String("name", args.Name), zap.String("corpus", args.Corpus), zap.String("corpus_path", args.CorpusPath))

	if args.Corpus == "" && args.CorpusPath == "" && args.Text == "" {
		return textResult("One of corpus, corpus_path or text is required"), nil, nil
	}

	info, err := s.ngramService.TrainFromClient(ctx, ngram.TrainRequest{
		Name:       args.Name,
		N:          args.N,
		Corpus:     args.Corpus,
		CorpusPath: args.CorpusPath,
		Text:       args.Text,
		Strategy:   args.Strategy,
	})
	if err != nil {
		return textResult(fmt.Sprintf("Failed to train model: %v", err)), nil, nil
	}

	return textResult(fmt.Sprintf("Trained model %s (%s): n=%d, %d tokens, %d windows, vocabulary %d",
		info.ID, info.Name, info.Stats.N, info.TokenCount, info.Windows, info.Stats.Table.VocabularySize)), nil, nil
}

func (s *NGramServer) handleGenerateText(ctx context.Context, req *mcp.CallToolRequest, args GenerateTextParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling generateText request", zap.String("model_id", args.ModelID))

	result, err := s.ngramService.Generate(ctx, args.ModelID, ngram.GenerateRequest{
		SeedText:  args.SeedText,
		MaxLength: args.MaxLength,
	})
	if err != nil {
		s.logger.Error("Failed to generate text", zap.String("model_id", args.ModelID), zap.Error(err))
		return textResult(fmt.Sprintf("Failed to generate text: %v", err)), nil, nil
	}

	return textResult(result.Text), nil, nil
}

func (s *NGramServer) handleListModels(ctx context.Context, req *mcp.CallToolRequest, args ListModelsParams) (*mcp.CallToolResult, any, error) {
	models := s.ngramService.List()
	if len(models) == 0 {
		return textResult("No models trained."), nil, nil
	}

	var sb strings.Builder
	for _, m := range models {
		fmt.Fprintf(&sb, "%s\t%s\tn=%d\t%d windows\n", m.ID, m.Name, m.Stats.N, m.Windows)
	}
	return textResult(sb.String()), nil, nil
}

func (s *NGramServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}

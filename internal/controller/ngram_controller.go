package controller

import (
	"errors"
	"net/http"

	"ngram-go/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NGramController struct {
	ngramService *ngram.NGramService
	logger       *zap.Logger
}

func NewNGramController(ngramService *ngram.NGramService, logger *zap.Logger) *NGramController {
	return &NGramController{
		ngramService: ngramService,
		logger:       logger,
	}
}

type TrainModelRequest struct {
	Name       string  `json:"name"`
	N          int     `json:"n"`
	Corpus     string  `json:"corpus"`
	CorpusPath string  `json:"corpus_path"`
	Text       string  `json:"text"`
	Encoding   string  `json:"encoding"`
	Tokenizer  string  `json:"tokenizer"`
	Strategy   string  `json:"strategy"`
	Seed       *uint64 `json:"seed"`
	SeedText   string  `json:"seed_text"`
}

type GenerateTextRequest struct {
	Seed      []string `json:"seed"`
	SeedText  string   `json:"seed_text"`
	MaxLength int      `json:"max_length"`
}

func (nc *NGramController) TrainModel(c *gin.Context) {
	var request TrainModelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		nc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}
	if request.Corpus == "" && request.CorpusPath == "" && request.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "One of corpus, corpus_path or text is required",
		})
		return
	}

	nc.logger.Info("Training model",
		zap.String("name", request.Name),
		zap.String("corpus", request.Corpus),
		zap.String("corpus_path", request.CorpusPath),
		zap.Int("n", request.N))

	info, err := nc.ngramService.TrainFromClient(c.Request.Context(), ngram.TrainRequest{
		Name:       request.Name,
		N:          request.N,
		Corpus:     request.Corpus,
		CorpusPath: request.CorpusPath,
		Text:       request.Text,
		Encoding:   request.Encoding,
		Tokenizer:  request.Tokenizer,
		Strategy:   request.Strategy,
		Seed:       request.Seed,
		SeedText:   request.SeedText,
	})
	if err != nil {
		nc.respondError(c, "Failed to train model", err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (nc *NGramController) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models": nc.ngramService.List(),
	})
}

func (nc *NGramController) GetModel(c *gin.Context) {
	info, err := nc.ngramService.GetModel(c.Param("id"))
	if err != nil {
		nc.respondError(c, "Failed to get model", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (nc *NGramController) DeleteModel(c *gin.Context) {
	if err := nc.ngramService.Delete(c.Param("id")); err != nil {
		nc.respondError(c, "Failed to delete model", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (nc *NGramController) Generate(c *gin.Context) {
	var request GenerateTextRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		nc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	result, err := nc.ngramService.Generate(c.Request.Context(), c.Param("id"), ngram.GenerateRequest{
		Seed:      request.Seed,
		SeedText:  request.SeedText,
		MaxLength: request.MaxLength,
	})
	if err != nil {
		nc.respondError(c, "Failed to generate text", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError maps service errors onto HTTP status codes
func (nc *NGramController) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	var corpusErr *ngram.CorpusError
	switch {
	case errors.Is(err, ngram.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ngram.ErrCorpusNotAllowed):
		status = http.StatusForbidden
	case errors.As(err, &corpusErr) && corpusErr.Op == "read":
		status = http.StatusUnprocessableEntity
	case errors.As(err, &corpusErr),
		errors.Is(err, ngram.ErrInvalidOrder),
		errors.Is(err, ngram.ErrEmptySeed),
		errors.Is(err, ngram.ErrInvalidMaxLength),
		errors.Is(err, ngram.ErrUnknownStrategy),
		errors.Is(err, ngram.ErrUnknownTokenizer),
		errors.Is(err, ngram.ErrUnknownCorpus):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		nc.logger.Error(message, zap.Error(err))
	} else {
		nc.logger.Warn(message, zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

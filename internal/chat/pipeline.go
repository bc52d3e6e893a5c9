// Package chat runs the retrieval-generation pipeline for one session turn.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kaiwa/internal/embedding"
	"github.com/hyperjump/kaiwa/internal/generate"
	"github.com/hyperjump/kaiwa/internal/models"
	"github.com/hyperjump/kaiwa/internal/session"
	"github.com/hyperjump/kaiwa/internal/vector"
)

// Fixed user-facing answers for the pipeline's failure paths. The service
// answers with text rather than an HTTP error so the client conversation
// flow never breaks.
const (
	msgNoDocuments = "No documents uploaded yet. Please upload documents first."

	retrievalErrPrefix  = "Error processing query: "
	generationErrPrefix = "Error generating response: "
)

// Pipeline answers chat messages against the current index. Turns within one
// session are serialized; different sessions proceed concurrently.
type Pipeline struct {
	embedder     embedding.Embedder
	index        *vector.Index
	generator    generate.Generator
	store        session.Store
	topK         int
	historyLimit int
	logger       *zap.Logger

	sessionLocks sync.Map // session id -> *sync.Mutex
}

func NewPipeline(
	embedder embedding.Embedder,
	index *vector.Index,
	generator generate.Generator,
	store session.Store,
	topK, historyLimit int,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 4
	}
	return &Pipeline{
		embedder:     embedder,
		index:        index,
		generator:    generator,
		store:        store,
		topK:         topK,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

func (p *Pipeline) lockSession(sessionID string) *sync.Mutex {
	mu, _ := p.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Answer runs one chat exchange: retrieve grounding chunks for the message,
// generate an answer over them and the session history, and append both
// turns to the session log. Every path returns a usable ChatResponse; only
// the context (cancellation) error is surfaced as an error.
func (p *Pipeline) Answer(ctx context.Context, sessionID, message string) (*models.ChatResponse, error) {
	mu := p.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	history, err := p.store.History(ctx, sessionID)
	if err != nil {
		p.logger.Warn("history load failed, continuing without history",
			zap.String("session", sessionID), zap.Error(err))
		history = nil
	}

	userTurn := models.Turn{Role: models.RoleUser, Text: message, CreatedAt: time.Now().UTC()}
	p.appendTurn(ctx, sessionID, userTurn)
	updated := append(history, userTurn)

	retrieval, err := p.retrieve(ctx, message)
	if err != nil {
		if errors.Is(err, vector.ErrNotIndexed) {
			return &models.ChatResponse{
				Answer:  msgNoDocuments,
				Context: []string{},
				History: updated,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error("retrieval failed", zap.String("session", sessionID), zap.Error(err))
		return &models.ChatResponse{
			Answer:  retrievalErrPrefix + err.Error(),
			Context: []string{},
			History: updated,
		}, nil
	}

	prompt := BuildPrompt(history, p.historyLimit, retrieval.Context, message)
	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error("generation failed", zap.String("session", sessionID), zap.Error(err))
		answer = generationErrPrefix + err.Error()
	}

	assistantTurn := models.Turn{Role: models.RoleAssistant, Text: answer, CreatedAt: time.Now().UTC()}
	p.appendTurn(ctx, sessionID, assistantTurn)
	updated = append(updated, assistantTurn)

	return &models.ChatResponse{
		Answer:       answer,
		ResponseTime: retrieval.Elapsed,
		Context:      retrieval.Chunks,
		History:      updated,
	}, nil
}

// History returns the session's full turn log, for clients that reload a
// conversation without sending a message.
func (p *Pipeline) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	return p.store.History(ctx, sessionID)
}

// retrieve embeds the query and searches the index. Elapsed covers both,
// matching what the client sees as "time to find the answer's sources".
func (p *Pipeline) retrieve(ctx context.Context, query string) (*models.Retrieval, error) {
	start := time.Now()

	queryVec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := p.index.Search(ctx, queryVec, p.topK)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Chunk.Text)
	}
	return &models.Retrieval{
		Chunks:  chunks,
		Context: strings.Join(chunks, "\n\n"),
		Elapsed: time.Since(start).Seconds(),
	}, nil
}

func (p *Pipeline) appendTurn(ctx context.Context, sessionID string, turn models.Turn) {
	if err := p.store.Append(ctx, sessionID, turn); err != nil {
		p.logger.Warn("turn not persisted",
			zap.String("session", sessionID), zap.String("role", turn.Role), zap.Error(err))
	}
}

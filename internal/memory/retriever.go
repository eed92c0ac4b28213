package memory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// ContextHeader prefixes retrieved facts in the generation prompt.
const ContextHeader = "MEMORIES FOUND:\n"

type Retriever struct {
	Logger *zap.Logger
}

func NewRetriever(logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{Logger: logger}
}

// Retrieve looks up facts for the synthesized keywords, or for the raw input
// when synthesis produced none. It returns the prompt context block and the
// facts; both are empty when retrieval is skipped or fails.
func (r *Retriever) Retrieve(ctx context.Context, store Store, synth model.SynthesisResult, userText string) (string, []string) {
	if store == nil {
		return "", nil
	}

	query := synth.SearchKeywords
	if strings.TrimSpace(string(query)) == "" {
		if len([]rune(userText)) <= 3 {
			return "", nil
		}
		query = model.CommaList(userText)
	}

	keywords := query.Split()
	if len(keywords) == 0 {
		return "", nil
	}

	r.Logger.Debug("searching memory", zap.Strings("keywords", keywords))
	memories, err := store.Retrieve(ctx, keywords)
	if err != nil {
		r.Logger.Warn("memory retrieval failed", zap.Error(err))
		return "", nil
	}
	if len(memories) == 0 {
		return "", nil
	}

	r.Logger.Debug("memories found", zap.Int("count", len(memories)))
	return ContextHeader + strings.Join(memories, "\n"), memories
}

package synthesis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/core/common"
	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/llm"
)

// Synthesizer asks the model which entities, topics and search keywords a user
// turn is about, and whether it states a new long-term fact.
type Synthesizer struct {
	LLM      llm.LLMClient
	Prompt   string
	UserName string
	Logger   *zap.Logger
}

func NewSynthesizer(llmClient llm.LLMClient, prompt, userName string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		LLM:      llmClient,
		Prompt:   prompt,
		UserName: userName,
		Logger:   logger,
	}
}

// Synthesize never fails. When the model is unreachable or its answer cannot
// be parsed, the result falls back to keywords taken from the input itself.
func (s *Synthesizer) Synthesize(ctx context.Context, userText string, history []model.ChatTurn) model.SynthesisResult {
	prompt := fmt.Sprintf(s.Prompt, s.UserName, model.FormatHistory(history), userText)

	response, err := s.LLM.Generate(ctx, llm.System(prompt))
	if err != nil {
		s.Logger.Warn("synthesizer request failed, using input keywords", zap.Error(err))
		return Fallback(userText)
	}

	result, err := common.ParseJSON[model.SynthesisResult](response)
	if err != nil {
		s.Logger.Warn("synthesizer returned malformed JSON, using input keywords", zap.Error(err))
		return Fallback(userText)
	}

	s.Logger.Debug("synthesized input",
		zap.String("entities", string(result.Entities)),
		zap.String("topics", string(result.Topics)),
		zap.String("keywords", string(result.SearchKeywords)),
	)
	return result
}

// Fallback derives search keywords from the words of userText longer than
// three characters.
func Fallback(userText string) model.SynthesisResult {
	var words []string
	for _, w := range strings.Split(userText, " ") {
		if len([]rune(w)) > 3 {
			words = append(words, w)
		}
	}
	return model.SynthesisResult{SearchKeywords: model.CommaList(strings.Join(words, ", "))}
}

package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/symbiosis/internal/core/common"
	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/llm"
)

// Generator produces the companion's answer together with a mood-annotated
// knowledge graph.
type Generator struct {
	LLM      llm.LLMClient
	Prompt   string
	UserName string
}

func NewGenerator(llmClient llm.LLMClient, prompt, userName string) *Generator {
	return &Generator{
		LLM:      llmClient,
		Prompt:   prompt,
		UserName: userName,
	}
}

// Generate returns the model's message content with markdown fences and
// surrounding prose stripped. Any failure here is fatal for the turn.
func (g *Generator) Generate(ctx context.Context, retrieved string, history []model.ChatTurn, userText string) (string, error) {
	moods := make([]string, 0, len(model.ModelMoods()))
	for _, m := range model.ModelMoods() {
		moods = append(moods, string(m))
	}

	prompt := fmt.Sprintf(g.Prompt,
		g.UserName,
		retrieved,
		model.FormatHistory(history),
		userText,
		strings.Join(moods, ", "),
	)

	response, err := g.LLM.Generate(ctx, llm.User(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return common.CleanJSON(response), nil
}

// ParseReply decodes generated content into a Reply.
func ParseReply(content string) (model.Reply, error) {
	reply, err := common.ParseJSON[model.Reply](content)
	if err != nil {
		return model.Reply{}, fmt.Errorf("failed to parse reply: %w", err)
	}
	return reply, nil
}

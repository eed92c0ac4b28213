package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/driver"
)

// DefaultRetrieveLimit caps the number of facts returned per retrieval.
const DefaultRetrieveLimit = 10

// GraphStore keeps facts as :Memory nodes in Memgraph.
type GraphStore struct {
	Driver driver.GraphDriver
	Limit  int
}

func NewGraphStore(d driver.GraphDriver) *GraphStore {
	return &GraphStore{Driver: d, Limit: DefaultRetrieveLimit}
}

func (g *GraphStore) Retrieve(ctx context.Context, keywords []string) ([]string, error) {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	result, err := g.Driver.ExecuteQuery(ctx, driver.SearchMemoriesQuery, map[string]any{
		"keywords": lowered,
		"limit":    g.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}

	var facts []string
	for _, record := range result.Records {
		fact, _ := record.Get("fact")
		if s, ok := fact.(string); ok && s != "" {
			facts = append(facts, s)
		}
	}
	return facts, nil
}

func (g *GraphStore) Store(ctx context.Context, record model.MemoryRecord) error {
	params := map[string]any{
		"uuid":       uuid.New().String(),
		"entities":   record.Entities,
		"topics":     record.Topics,
		"fact":       record.Fact,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := g.Driver.ExecuteQuery(ctx, driver.SaveMemoryQuery, params); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Package memory reads and writes the companion's long-term facts.
package memory

import (
	"context"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// Store is a keyword-indexed fact store.
type Store interface {
	// Retrieve returns facts relevant to any of the keywords. An unreadable
	// answer is reported as no facts, not as an error.
	Retrieve(ctx context.Context, keywords []string) ([]string, error)
	Store(ctx context.Context, record model.MemoryRecord) error
}

package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// Writer persists new facts in the background. Writes are best effort: they
// are never awaited by a turn, never retried, and failures are only logged.
type Writer struct {
	Timeout time.Duration
	Logger  *zap.Logger

	wg sync.WaitGroup
}

func NewWriter(timeout time.Duration, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{Timeout: timeout, Logger: logger}
}

// Persist starts a detached write of the synthesized fact. It reports whether
// a write was issued.
func (w *Writer) Persist(store Store, synth model.SynthesisResult) bool {
	if store == nil {
		return false
	}
	fact, ok := synth.Fact()
	if !ok {
		return false
	}

	record := model.MemoryRecord{
		Entities: string(synth.Entities),
		Topics:   string(synth.Topics),
		Fact:     fact,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx := context.Background()
		if w.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.Timeout)
			defer cancel()
		}

		if err := store.Store(ctx, record); err != nil {
			w.Logger.Error("failed to save memory", zap.String("fact", record.Fact), zap.Error(err))
			return
		}
		w.Logger.Debug("memory saved", zap.String("fact", record.Fact))
	}()
	return true
}

// Wait blocks until all in-flight writes have finished.
func (w *Writer) Wait() {
	w.wg.Wait()
}

package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agenthands/symbiosis/internal/config"
	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/llm"
	"github.com/agenthands/symbiosis/internal/memory"
)

type logLine struct {
	Role model.Role
	Text string
}

// MockRenderer records every call and exposes spoken lines on a channel.
type MockRenderer struct {
	mu       sync.Mutex
	logs     []logLine
	keywords [][]string
	graphs   []model.KnowledgeGraph
	spawned  []string
	states   []State
	feeding  bool
	glyphs   int

	spoken chan string
}

func newMockRenderer() *MockRenderer {
	return &MockRenderer{spoken: make(chan string, 32)}
}

func (m *MockRenderer) AppendLog(role model.Role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, logLine{role, text})
}

func (m *MockRenderer) UpdateKeywords(keywords []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywords = append(m.keywords, keywords)
}

func (m *MockRenderer) ConsumeGraph(g model.KnowledgeGraph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs = append(m.graphs, g)
}

func (m *MockRenderer) Speak(text string) {
	m.spoken <- text
}

func (m *MockRenderer) SpawnFood(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawned = append(m.spawned, text)
}

func (m *MockRenderer) Feeding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeding
}

func (m *MockRenderer) ActiveGlyphs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.glyphs
}

func (m *MockRenderer) StateChanged(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *MockRenderer) setVisuals(feeding bool, glyphs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeding = feeding
	m.glyphs = glyphs
}

func (m *MockRenderer) Logs() []logLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]logLine(nil), m.logs...)
}

func (m *MockRenderer) Keywords() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.keywords...)
}

func (m *MockRenderer) Graphs() []model.KnowledgeGraph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.KnowledgeGraph(nil), m.graphs...)
}

func (m *MockRenderer) Spawned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spawned...)
}

// waitSpoken returns the next spoken line or fails the test.
func (m *MockRenderer) waitSpoken(t *testing.T, within time.Duration) string {
	t.Helper()
	select {
	case s := <-m.spoken:
		return s
	case <-time.After(within):
		t.Fatal("nothing was spoken")
		return ""
	}
}

// assertSilent fails if anything is spoken within d.
func (m *MockRenderer) assertSilent(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case s := <-m.spoken:
		t.Fatalf("unexpected speech: %q", s)
	case <-time.After(d):
	}
}

// blockingLLM blocks every call until release is closed.
type blockingLLM struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingLLM) Generate(ctx context.Context, messages ...llm.Message) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return "{}", nil
}

func ms(n int) config.Duration {
	return config.Duration{Duration: time.Duration(n) * time.Millisecond}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timing = config.TimingConfig{
		EscapeDelay:        ms(20),
		GlitchSpeakDelay:   ms(20),
		GlitchRecoverDelay: ms(20),
		WarningDuration:    ms(60),
		RevealPollInterval: ms(5),
		RevealTimeout:      ms(150),
	}
	return cfg
}

func readySettings() config.Settings {
	return config.Settings{APIKey: "sk-or-test-0000000000", MemoryURL: "https://memory.example/exec"}
}

type harness struct {
	companion *Companion
	renderer  *MockRenderer
	llm       llm.LLMClient
	settings  *config.MemorySettings
	opened    []string
}

func newHarness(t *testing.T, client llm.LLMClient, store memory.Store, settings config.Settings) *harness {
	t.Helper()
	h := &harness{
		renderer: newMockRenderer(),
		llm:      client,
		settings: config.NewMemorySettings(settings),
	}

	c, err := New(Options{
		Config:   testConfig(),
		Settings: h.settings,
		Renderer: h.renderer,
		Logger:   zaptest.NewLogger(t),
		NewLLM: func(ctx context.Context, apiKey string) (llm.LLMClient, error) {
			return client, nil
		},
		OpenStore: func(endpoint string) memory.Store {
			h.opened = append(h.opened, endpoint)
			return store
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	h.companion = c
	return h
}

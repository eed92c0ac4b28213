package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/config"
	"github.com/agenthands/symbiosis/internal/core/generation"
	"github.com/agenthands/symbiosis/internal/core/graph"
	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/core/synthesis"
	"github.com/agenthands/symbiosis/internal/llm"
	"github.com/agenthands/symbiosis/internal/memory"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrTurnFailed wraps any error that aborted a chat turn after the
	// failure phrase was spoken.
	ErrTurnFailed = errors.New("turn failed")
)

// Phrases the companion speaks without consulting the model.
const (
	PhraseFailure        = "SYSTEM FAILURE."
	PhraseGlitch         = "ERR.. SYST3M... REJECT... D4TA..."
	PhraseInvalidKey     = "INVALID KEY FORMAT."
	PhraseKeyAccepted    = "KEY ACCEPTED."
	PhraseMemoryDisabled = "MEMORY DISABLED."
	PhraseMemoryLinked   = "MEMORY LINKED."
	PhraseInvalidMemory  = "INVALID MEMORY URL."
)

const minKeyLength = 10

// Outcome describes how a submission was handled.
type Outcome struct {
	ID       string                `json:"id"`
	Kind     InputKind             `json:"kind"`
	Stage    Stage                 `json:"stage"`
	Mood     model.Mood            `json:"mood"`
	Reply    string                `json:"reply,omitempty"`
	Keywords []string              `json:"keywords,omitempty"`
	Graph    *model.KnowledgeGraph `json:"graph,omitempty"`
	Memories []string              `json:"memories,omitempty"`
}

type Options struct {
	Config   *config.Config
	Settings config.SettingsStore
	Renderer Renderer
	Logger   *zap.Logger

	// NewLLM builds the chat client for an API key. Defaults to llm.NewClient
	// with Config.LLM.
	NewLLM func(ctx context.Context, apiKey string) (llm.LLMClient, error)
	// OpenStore returns the memory store for an endpoint. Defaults to a
	// webhook store.
	OpenStore func(endpoint string) memory.Store
	// MemoryPreconfigured means the memory store is set up by the service
	// (Memgraph) and the intake never asks for a URL.
	MemoryPreconfigured bool
}

// Companion runs conversation turns: it classifies input, drives first-run
// intake, and sequences synthesis, retrieval, generation and storage.
type Companion struct {
	cfg       *config.Config
	settings  config.SettingsStore
	renderer  Renderer
	logger    *zap.Logger
	newLLM    func(ctx context.Context, apiKey string) (llm.LLMClient, error)
	openStore func(endpoint string) memory.Store
	preconf   bool

	session   *session
	retriever *memory.Retriever
	writer    *memory.Writer

	mu      sync.Mutex
	current config.Settings
	pipe    *pipeline
	stores  map[string]memory.Store

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

type pipeline struct {
	apiKey      string
	synthesizer *synthesis.Synthesizer
	generator   *generation.Generator
}

func New(opts Options) (*Companion, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Settings == nil {
		opts.Settings = config.NewMemorySettings(config.Settings{})
	}
	if opts.Renderer == nil {
		opts.Renderer = NopRenderer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.Config

	if opts.NewLLM == nil {
		opts.NewLLM = func(ctx context.Context, apiKey string) (llm.LLMClient, error) {
			return llm.NewClient(ctx, cfg.LLM, apiKey)
		}
	}
	if opts.OpenStore == nil {
		timeout := cfg.Memory.Timeout.Duration
		opts.OpenStore = func(endpoint string) memory.Store {
			return memory.NewWebhookStore(endpoint, timeout)
		}
	}

	current, err := opts.Settings.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	c := &Companion{
		cfg:       cfg,
		settings:  opts.Settings,
		renderer:  opts.Renderer,
		logger:    opts.Logger,
		newLLM:    opts.NewLLM,
		openStore: opts.OpenStore,
		preconf:   opts.MemoryPreconfigured,
		session:   newSession(opts.Renderer.StateChanged),
		retriever: memory.NewRetriever(opts.Logger),
		writer:    memory.NewWriter(cfg.Memory.StoreTimeout.Duration, opts.Logger),
		current:   current,
		stores:    make(map[string]memory.Store),
		done:      make(chan struct{}),
	}
	c.refreshStage()
	return c, nil
}

// State returns the renderer-facing snapshot.
func (c *Companion) State() State {
	return c.session.snapshot()
}

// History returns a copy of the retained chat turns.
func (c *Companion) History() []model.ChatTurn {
	return c.session.turns()
}

// Close stops pending delayed effects and waits for background memory writes.
func (c *Companion) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	c.writer.Wait()
}

// Drain waits for pending delayed effects such as speech and mood recovery
// without cancelling them.
func (c *Companion) Drain() {
	c.wg.Wait()
}

// Submit handles one user submission.
func (c *Companion) Submit(ctx context.Context, text string) (*Outcome, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	switch c.State().Stage {
	case StageKey:
		return c.intakeKey(text)
	case StageMemory:
		return c.intakeMemory(text)
	}

	if IsGarbage(text) {
		return c.glitch(text), nil
	}

	if strings.HasPrefix(text, EscapePrefix) {
		c.renderer.SpawnFood(text)
		line := strings.TrimPrefix(text, EscapePrefix)
		c.after(c.cfg.Timing.EscapeDelay.Duration, func() {
			c.renderer.Speak(line)
		})
		return c.outcome(KindScripted), nil
	}

	return c.chat(ctx, text)
}

func (c *Companion) outcome(kind InputKind) *Outcome {
	st := c.State()
	return &Outcome{ID: uuid.NewString(), Kind: kind, Stage: st.Stage, Mood: st.Mood}
}

// glitch answers mashed input locally: the swarm glitches, a canned error is
// spoken, and the mood recovers.
func (c *Companion) glitch(text string) *Outcome {
	c.session.update(func(s *session) {
		s.glitch = true
		s.mood = model.MoodGlitch
	})
	c.renderer.SpawnFood(text)

	timing := c.cfg.Timing
	c.after(timing.GlitchSpeakDelay.Duration, func() {
		c.renderer.Speak(PhraseGlitch)
		c.after(timing.GlitchRecoverDelay.Duration, func() {
			c.session.update(func(s *session) {
				s.glitch = false
				s.mood = model.MoodNeutral
			})
		})
	})
	return c.outcome(KindGlitch)
}

func (c *Companion) chat(ctx context.Context, text string) (*Outcome, error) {
	if !c.session.tryBegin() {
		return nil, ErrTurnInFlight
	}
	defer c.session.update(func(s *session) { s.busy = false })

	id := uuid.NewString()
	logger := c.logger.With(zap.String("turn", id))

	c.renderer.SpawnFood(text)
	c.renderer.AppendLog(model.RoleUser, text)

	userTurn := model.ChatTurn{Role: model.RoleUser, Content: text}
	history := append(c.session.turns(), userTurn)
	if n := len(history); n > model.MaxHistory {
		history = history[n-model.MaxHistory:]
	}

	p, err := c.pipeline(ctx)
	if err != nil {
		return nil, c.fail(logger, err)
	}

	logger.Debug("synthesizing input")
	synth := p.synthesizer.Synthesize(ctx, text, history)

	store := c.store()
	retrieved, memories := c.retriever.Retrieve(ctx, store, synth, text)
	if len(memories) > 0 {
		c.session.update(func(s *session) { s.lastMemories = retrieved })
	}

	if c.writer.Persist(store, synth) {
		logger.Debug("memory write issued")
	}

	logger.Debug("generating response")
	content, err := p.generator.Generate(ctx, retrieved, history, text)
	if err != nil {
		return nil, c.fail(logger, err)
	}
	reply, err := generation.ParseReply(content)
	if err != nil {
		return nil, c.fail(logger, err)
	}

	c.session.update(func(s *session) {
		s.history.Append(userTurn, model.ChatTurn{Role: model.RoleAssistant, Content: reply.Response})
	})
	c.renderer.AppendLog(model.RoleAssistant, reply.Response)

	keywords, g := c.present(reply)

	mood := model.ParseMood(string(reply.Mood))
	c.session.update(func(s *session) {
		s.mood = mood
		s.thinking = false
	})

	c.reveal(reply.Response)

	logger.Info("turn complete", zap.String("mood", string(mood)), zap.Int("keywords", len(keywords)))
	return &Outcome{
		ID:       id,
		Kind:     KindChat,
		Stage:    StageReady,
		Mood:     mood,
		Reply:    reply.Response,
		Keywords: keywords,
		Graph:    g,
		Memories: memories,
	}, nil
}

// present hands the reply's graph, or the graph built from its keyword list,
// to the renderer.
func (c *Companion) present(reply model.Reply) ([]string, *model.KnowledgeGraph) {
	var g model.KnowledgeGraph
	switch {
	case reply.HasGraph():
		g = *reply.Graph
	case len(reply.Keywords) > 0:
		g = graph.FromKeywords(reply.Keywords)
	default:
		return nil, nil
	}

	keywords := graph.Flatten(g)
	c.renderer.UpdateKeywords(keywords)
	c.renderer.ConsumeGraph(g)
	return keywords, &g
}

// reveal speaks text once the creatures have finished eating the input, or
// after RevealTimeout at the latest.
func (c *Companion) reveal(text string) {
	timing := c.cfg.Timing
	if c.closed() {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(timing.RevealPollInterval.Duration)
		defer ticker.Stop()
		deadline := time.NewTimer(timing.RevealTimeout.Duration)
		defer deadline.Stop()

		for {
			select {
			case <-c.done:
				return
			case <-deadline.C:
				c.renderer.Speak(text)
				return
			case <-ticker.C:
				if !c.renderer.Feeding() || c.renderer.ActiveGlyphs() == 0 {
					c.renderer.Speak(text)
					return
				}
			}
		}
	}()
}

// fail puts the companion into the warning state for WarningDuration and
// speaks the fallback phrase instead of an answer.
func (c *Companion) fail(logger *zap.Logger, err error) error {
	logger.Error("chat turn failed", zap.Error(err))

	c.session.update(func(s *session) {
		s.mood = model.MoodWarning
		s.thinking = false
	})
	c.after(c.cfg.Timing.WarningDuration.Duration, func() {
		c.session.setMood(model.MoodNeutral)
	})
	c.renderer.Speak(PhraseFailure)

	return fmt.Errorf("%w: %w", ErrTurnFailed, err)
}

// after runs fn once d has elapsed unless the companion is closed first.
func (c *Companion) after(d time.Duration, fn func()) {
	if c.closed() {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-c.done:
		}
	}()
}

func (c *Companion) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// pipeline returns the synthesizer and generator for the current API key,
// rebuilding the client when the key changed.
func (c *Companion) pipeline(ctx context.Context) (*pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.apiKeyLocked()
	if c.pipe != nil && c.pipe.apiKey == key {
		return c.pipe, nil
	}

	client, err := c.newLLM(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	prompts := c.cfg.Prompts
	name := c.cfg.Persona.UserName
	c.pipe = &pipeline{
		apiKey:      key,
		synthesizer: synthesis.NewSynthesizer(client, prompts.Synthesis, name, c.logger),
		generator:   generation.NewGenerator(client, prompts.Generation, name),
	}
	return c.pipe, nil
}

// store returns the memory store for this turn, or nil when memory is off.
func (c *Companion) store() memory.Store {
	c.mu.Lock()
	defer c.mu.Unlock()

	endpoint := ""
	if !c.preconf {
		endpoint = c.memoryURLLocked()
		if endpoint == "" || endpoint == config.MemoryDisabled {
			return nil
		}
	}

	if s, ok := c.stores[endpoint]; ok {
		return s
	}
	s := c.openStore(endpoint)
	if s == nil {
		return nil
	}
	c.stores[endpoint] = s
	return s
}

func (c *Companion) apiKeyLocked() string {
	if c.current.APIKey != "" {
		return c.current.APIKey
	}
	return c.cfg.LLM.APIKey
}

func (c *Companion) memoryURLLocked() string {
	if c.current.MemoryURL != "" {
		return c.current.MemoryURL
	}
	return c.cfg.Memory.URL
}

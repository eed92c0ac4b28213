package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/symbiosis/internal/config"
	"github.com/agenthands/symbiosis/internal/core/model"
	"github.com/agenthands/symbiosis/internal/llm"
	"github.com/agenthands/symbiosis/internal/memory"
)

const (
	synthJSON = "```json\n" + `{"entities": "Arvin, office", "topics": "work", "search_keywords": "work, office", "new_fact": "Arvin works in an office"}` + "\n```"
	genJSON   = `Here you go: {"response": "Sounds busy.", "mood": "curious", "graph": {"center": "work", "branches": [{"label": "office", "leaves": ["desk", {"text": "chair", "mood": "SAD"}]}]}}`
)

func chatLLM(replies ...string) *llm.MockLLM {
	m := &llm.MockLLM{}
	for _, r := range replies {
		m.ResponseQueue = append(m.ResponseQueue, llm.MockResponse{Content: r})
	}
	return m
}

func TestSubmitEmpty(t *testing.T) {
	h := newHarness(t, &llm.MockLLM{}, nil, readySettings())

	_, err := h.companion.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEscapeSpeaksVerbatim(t *testing.T) {
	client := &llm.MockLLM{}
	store := &memory.MockStore{}
	h := newHarness(t, client, store, readySettings())

	out, err := h.companion.Submit(context.Background(), "/hello there")
	require.NoError(t, err)
	assert.Equal(t, KindScripted, out.Kind)
	assert.Equal(t, []string{"/hello there"}, h.renderer.Spawned())

	assert.Equal(t, "hello there", h.renderer.waitSpoken(t, time.Second))
	assert.Empty(t, client.Calls())
	assert.Empty(t, store.RetrieveCalls())
	assert.Empty(t, h.companion.History())
}

func TestGarbageGlitchesAndRecovers(t *testing.T) {
	client := &llm.MockLLM{}
	h := newHarness(t, client, &memory.MockStore{}, readySettings())

	out, err := h.companion.Submit(context.Background(), "sdfghjkl")
	require.NoError(t, err)
	assert.Equal(t, KindGlitch, out.Kind)
	assert.Equal(t, model.MoodGlitch, out.Mood)

	st := h.companion.State()
	assert.True(t, st.Glitch)
	assert.Equal(t, model.MoodNeutral.Palette(), st.Palette)

	assert.Equal(t, PhraseGlitch, h.renderer.waitSpoken(t, time.Second))
	assert.Eventually(t, func() bool {
		st := h.companion.State()
		return !st.Glitch && st.Mood == model.MoodNeutral
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, client.Calls())
}

func TestDrainLetsDelayedEffectsFinish(t *testing.T) {
	h := newHarness(t, &llm.MockLLM{}, &memory.MockStore{}, readySettings())

	_, err := h.companion.Submit(context.Background(), "/hello there")
	require.NoError(t, err)
	_, err = h.companion.Submit(context.Background(), "sdfghjkl")
	require.NoError(t, err)

	h.companion.Drain()

	require.Len(t, h.renderer.spoken, 2)
	assert.ElementsMatch(t, []string{"hello there", PhraseGlitch}, []string{<-h.renderer.spoken, <-h.renderer.spoken})
	st := h.companion.State()
	assert.False(t, st.Glitch)
	assert.Equal(t, model.MoodNeutral, st.Mood)
}

func TestChatTurn(t *testing.T) {
	client := chatLLM(synthJSON, genJSON)
	store := &memory.MockStore{Memories: []string{"Arvin likes coffee"}}
	h := newHarness(t, client, store, readySettings())

	out, err := h.companion.Submit(context.Background(), "I am at the office today")
	require.NoError(t, err)

	assert.Equal(t, KindChat, out.Kind)
	assert.Equal(t, "Sounds busy.", out.Reply)
	assert.Equal(t, model.MoodCurious, out.Mood)
	assert.Equal(t, []string{"WORK", "OFFICE", "DESK", "CHAIR"}, out.Keywords)
	assert.Equal(t, []string{"Arvin likes coffee"}, out.Memories)

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, llm.RoleSystem, calls[0][0].Role)
	assert.Equal(t, llm.RoleUser, calls[1][0].Role)
	assert.Contains(t, calls[1][0].Content, memory.ContextHeader+"Arvin likes coffee")
	assert.Contains(t, calls[1][0].Content, "I am at the office today")

	assert.Equal(t, [][]string{{"work", "office"}}, store.RetrieveCalls())

	h.companion.writer.Wait()
	stored := store.Stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "Arvin works in an office", stored[0].Fact)
	assert.Equal(t, "Arvin, office", stored[0].Entities)

	assert.Equal(t, []logLine{
		{model.RoleUser, "I am at the office today"},
		{model.RoleAssistant, "Sounds busy."},
	}, h.renderer.Logs())
	assert.Equal(t, [][]string{{"WORK", "OFFICE", "DESK", "CHAIR"}}, h.renderer.Keywords())
	require.Len(t, h.renderer.Graphs(), 1)
	assert.Equal(t, model.MoodSad, h.renderer.Graphs()[0].Branches[0].Leaves[1].Mood)

	st := h.companion.State()
	assert.False(t, st.Busy)
	assert.False(t, st.Thinking)
	assert.Equal(t, model.MoodCurious, st.Mood)
	assert.Equal(t, memory.ContextHeader+"Arvin likes coffee", st.LastMemories)

	assert.Equal(t, "Sounds busy.", h.renderer.waitSpoken(t, time.Second))
	assert.Equal(t, []model.ChatTurn{
		{Role: model.RoleUser, Content: "I am at the office today"},
		{Role: model.RoleAssistant, Content: "Sounds busy."},
	}, h.companion.History())
}

func TestChatUnknownMoodIsNeutral(t *testing.T) {
	replies := map[string]string{
		"unknown name": `{"response": "Wow.", "mood": "EXCITED"}`,
		"number":       `{"response": "Wow.", "mood": 5}`,
		"object":       `{"response": "Wow.", "mood": {"value": "SAD"}}`,
		"missing":      `{"response": "Wow."}`,
		"odd graph":    `{"response": "Wow.", "mood": 3, "graph": {"center": "SKY", "mood": 2, "branches": [{"label": "STAR", "mood": false, "leaves": "MOON"}]}}`,
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			client := chatLLM("{}", reply)
			h := newHarness(t, client, nil, readySettings())

			out, err := h.companion.Submit(context.Background(), "tell me something")
			require.NoError(t, err)
			assert.Equal(t, "Wow.", out.Reply)
			assert.Equal(t, model.MoodNeutral, out.Mood)
			assert.Equal(t, model.MoodNeutral, h.companion.State().Mood)
			assert.Equal(t, "Wow.", h.renderer.waitSpoken(t, time.Second))
		})
	}
}

func TestChatOddGraphKeepsValidNodes(t *testing.T) {
	client := chatLLM("{}", `{"response": "Wow.", "mood": "JOYFUL", "graph": {"center": "SKY", "branches": [{"label": "STAR", "leaves": "MOON"}, {"label": "CLOUD", "leaves": ["RAIN", 4]}]}}`)
	h := newHarness(t, client, nil, readySettings())

	out, err := h.companion.Submit(context.Background(), "look up")
	require.NoError(t, err)
	assert.Equal(t, model.MoodJoyful, out.Mood)
	assert.Equal(t, []string{"SKY", "STAR", "CLOUD", "RAIN"}, out.Keywords)
}

func TestChatKeywordFallbackGraph(t *testing.T) {
	client := chatLLM("{}", `{"response": "Hm.", "mood": "CRYPTIC", "keywords": ["stars", "night"]}`)
	h := newHarness(t, client, nil, readySettings())

	out, err := h.companion.Submit(context.Background(), "look at the sky")
	require.NoError(t, err)
	assert.Equal(t, []string{"STARS", "NIGHT"}, out.Keywords)
	require.NotNil(t, out.Graph)
	assert.Equal(t, "stars", out.Graph.Center)
}

func TestChatWithoutGraph(t *testing.T) {
	client := chatLLM("{}", `{"response": "Hm.", "mood": "SAD"}`)
	h := newHarness(t, client, nil, readySettings())

	out, err := h.companion.Submit(context.Background(), "nothing much")
	require.NoError(t, err)
	assert.Empty(t, out.Keywords)
	assert.Nil(t, out.Graph)
	assert.Empty(t, h.renderer.Keywords())
	assert.Empty(t, h.renderer.Graphs())
}

func TestHistoryIsCapped(t *testing.T) {
	client := &llm.MockLLM{Response: `{"response": "ok", "mood": "NEUTRAL"}`}
	h := newHarness(t, client, nil, readySettings())

	for i := 0; i < 7; i++ {
		_, err := h.companion.Submit(context.Background(), fmt.Sprintf("message number %d", i))
		require.NoError(t, err)
	}

	turns := h.companion.History()
	require.Len(t, turns, model.MaxHistory)
	assert.Equal(t, "message number 2", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[len(turns)-1].Role)
}

func TestNullFactIsNotStored(t *testing.T) {
	client := chatLLM(`{"search_keywords": "rain", "new_fact": "null"}`, `{"response": "ok", "mood": "NEUTRAL"}`)
	store := &memory.MockStore{}
	h := newHarness(t, client, store, readySettings())

	_, err := h.companion.Submit(context.Background(), "it is raining")
	require.NoError(t, err)

	h.companion.writer.Wait()
	assert.Empty(t, store.Stored())
	assert.Len(t, store.RetrieveCalls(), 1)
}

func TestMemoryDisabledSkipsStore(t *testing.T) {
	client := chatLLM(synthJSON, genJSON)
	settings := readySettings()
	settings.MemoryURL = config.MemoryDisabled
	h := newHarness(t, client, &memory.MockStore{}, settings)

	out, err := h.companion.Submit(context.Background(), "I am at the office today")
	require.NoError(t, err)
	assert.Empty(t, out.Memories)
	assert.Empty(t, h.opened)
	assert.NotContains(t, client.Calls()[1][0].Content, memory.ContextHeader)
}

func TestRetrievalFailureIsNotFatal(t *testing.T) {
	client := chatLLM(synthJSON, genJSON)
	store := &memory.MockStore{RetrieveErr: errors.New("timeout"), StoreErr: errors.New("down")}
	h := newHarness(t, client, store, readySettings())

	out, err := h.companion.Submit(context.Background(), "I am at the office today")
	require.NoError(t, err)
	assert.Equal(t, "Sounds busy.", out.Reply)
	assert.Empty(t, h.companion.State().LastMemories)
}

func TestGenerationFailure(t *testing.T) {
	client := &llm.MockLLM{ResponseQueue: []llm.MockResponse{
		{Content: "{}"},
		{Err: errors.New("502 bad gateway")},
	}}
	h := newHarness(t, client, nil, readySettings())

	_, err := h.companion.Submit(context.Background(), "hello again friend")
	require.ErrorIs(t, err, ErrTurnFailed)
	assert.Contains(t, err.Error(), "502 bad gateway")

	assert.Equal(t, PhraseFailure, h.renderer.waitSpoken(t, time.Second))
	st := h.companion.State()
	assert.Equal(t, model.MoodWarning, st.Mood)
	assert.False(t, st.Busy)
	assert.False(t, st.Thinking)
	assert.Empty(t, h.companion.History())

	assert.Eventually(t, func() bool {
		return h.companion.State().Mood == model.MoodNeutral
	}, time.Second, 5*time.Millisecond)
}

func TestMalformedReplyFails(t *testing.T) {
	client := chatLLM("{}", "I refuse to answer in JSON")
	h := newHarness(t, client, nil, readySettings())

	_, err := h.companion.Submit(context.Background(), "hello again friend")
	require.Error(t, err)
	assert.Equal(t, PhraseFailure, h.renderer.waitSpoken(t, time.Second))
	assert.Empty(t, h.companion.History())

	logs := h.renderer.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, model.RoleUser, logs[0].Role)
}

func TestTurnInFlight(t *testing.T) {
	client := &blockingLLM{started: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, client, nil, readySettings())

	errc := make(chan error, 1)
	go func() {
		_, err := h.companion.Submit(context.Background(), "first message here")
		errc <- err
	}()

	select {
	case <-client.started:
	case <-time.After(time.Second):
		t.Fatal("first turn never reached the model")
	}

	st := h.companion.State()
	assert.True(t, st.Busy)
	assert.Equal(t, "SYNCING...", st.Action)

	_, err := h.companion.Submit(context.Background(), "second message here")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(client.release)
	require.NoError(t, <-errc)
	assert.False(t, h.companion.State().Busy)
	assert.Len(t, h.companion.History(), 2)
}

func TestRevealWaitsForFeeding(t *testing.T) {
	client := chatLLM("{}", `{"response": "Done eating.", "mood": "JOYFUL"}`)
	h := newHarness(t, client, nil, readySettings())
	h.renderer.setVisuals(true, 3)

	_, err := h.companion.Submit(context.Background(), "feed the swarm")
	require.NoError(t, err)

	h.renderer.assertSilent(t, 40*time.Millisecond)
	h.renderer.setVisuals(false, 0)
	assert.Equal(t, "Done eating.", h.renderer.waitSpoken(t, time.Second))
}

func TestRevealTimesOut(t *testing.T) {
	client := chatLLM("{}", `{"response": "Too slow.", "mood": "JOYFUL"}`)
	h := newHarness(t, client, nil, readySettings())
	h.renderer.setVisuals(true, 3)

	start := time.Now()
	_, err := h.companion.Submit(context.Background(), "feed the swarm")
	require.NoError(t, err)

	assert.Equal(t, "Too slow.", h.renderer.waitSpoken(t, time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestIntakeFlow(t *testing.T) {
	h := newHarness(t, &llm.MockLLM{}, &memory.MockStore{}, config.Settings{})
	ctx := context.Background()

	st := h.companion.State()
	assert.Equal(t, StageKey, st.Stage)
	assert.Equal(t, "AUTH", st.Action)

	_, err := h.companion.Submit(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, PhraseInvalidKey, h.renderer.waitSpoken(t, time.Second))
	assert.Equal(t, StageKey, h.companion.State().Stage)

	_, err = h.companion.Submit(ctx, "pk-0123456789")
	require.NoError(t, err)
	assert.Equal(t, PhraseInvalidKey, h.renderer.waitSpoken(t, time.Second))

	out, err := h.companion.Submit(ctx, "sk-or-v1-abcdef ")
	require.NoError(t, err)
	assert.Equal(t, KindIntake, out.Kind)
	assert.Equal(t, StageMemory, out.Stage)
	assert.Equal(t, PhraseKeyAccepted, h.renderer.waitSpoken(t, time.Second))
	assert.Equal(t, "LINK", h.companion.State().Action)

	saved, err := h.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-abcdef", saved.APIKey)

	_, err = h.companion.Submit(ctx, "not a url")
	require.NoError(t, err)
	assert.Equal(t, PhraseInvalidMemory, h.renderer.waitSpoken(t, time.Second))
	assert.Equal(t, StageMemory, h.companion.State().Stage)

	_, err = h.companion.Submit(ctx, "https://script.google.com/macros/s/abc/exec")
	require.NoError(t, err)
	assert.Equal(t, PhraseMemoryLinked, h.renderer.waitSpoken(t, time.Second))

	st = h.companion.State()
	assert.Equal(t, StageReady, st.Stage)
	assert.Equal(t, "SYNC", st.Action)
}

func TestIntakeSkipMemory(t *testing.T) {
	h := newHarness(t, &llm.MockLLM{}, nil, config.Settings{APIKey: "sk-abcdefghijk"})
	assert.Equal(t, StageMemory, h.companion.State().Stage)

	_, err := h.companion.Submit(context.Background(), config.MemoryDisabled)
	require.NoError(t, err)
	assert.Equal(t, PhraseMemoryDisabled, h.renderer.waitSpoken(t, time.Second))
	assert.Equal(t, StageReady, h.companion.State().Stage)

	saved, err := h.settings.Load()
	require.NoError(t, err)
	assert.False(t, saved.MemoryEnabled())
}

func TestPreconfiguredMemory(t *testing.T) {
	renderer := newMockRenderer()
	store := &memory.MockStore{Memories: []string{"remembered"}}
	var opened []string

	c, err := New(Options{
		Config:              testConfig(),
		Settings:            config.NewMemorySettings(config.Settings{APIKey: "sk-abcdefghijk"}),
		Renderer:            renderer,
		MemoryPreconfigured: true,
		NewLLM: func(ctx context.Context, apiKey string) (llm.LLMClient, error) {
			return chatLLM(synthJSON, genJSON), nil
		},
		OpenStore: func(endpoint string) memory.Store {
			opened = append(opened, endpoint)
			return store
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Equal(t, StageReady, c.State().Stage)

	out, err := c.Submit(context.Background(), "I am at the office today")
	require.NoError(t, err)
	assert.Equal(t, []string{"remembered"}, out.Memories)
	assert.Equal(t, []string{""}, opened)
}

func TestClientFactoryError(t *testing.T) {
	renderer := newMockRenderer()
	c, err := New(Options{
		Config:   testConfig(),
		Settings: config.NewMemorySettings(readySettings()),
		Renderer: renderer,
		NewLLM: func(ctx context.Context, apiKey string) (llm.LLMClient, error) {
			return nil, errors.New("unsupported provider")
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	_, err = c.Submit(context.Background(), "hello again friend")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported provider"))
	assert.Equal(t, PhraseFailure, renderer.waitSpoken(t, time.Second))
}

package core

import (
	"sync"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// Stage is the first-run configuration step the companion is waiting on.
type Stage string

const (
	StageKey    Stage = "KEY"
	StageMemory Stage = "MEMORY"
	StageReady  Stage = "READY"
)

// State is the snapshot renderers read.
type State struct {
	Mood         model.Mood         `json:"mood"`
	Glitch       bool               `json:"glitch"`
	Thinking     bool               `json:"thinking"`
	Busy         bool               `json:"busy"`
	LastMemories string             `json:"last_memories,omitempty"`
	Stage        Stage              `json:"stage"`
	Prompt       string             `json:"prompt"`
	Action       string             `json:"action"`
	Audio        model.AudioProfile `json:"audio"`
	Palette      model.Palette      `json:"palette"`
}

// stageLabels returns the input placeholder and send-button label the UI
// shows for a stage.
func stageLabels(stage Stage, busy bool) (prompt, action string) {
	switch stage {
	case StageKey:
		return "ENTER OPENROUTER KEY...", "AUTH"
	case StageMemory:
		return "OPTIONAL: ENTER GOOGLE SCRIPT URL...", "LINK"
	}
	if busy {
		return "COMMUNICATE...", "SYNCING..."
	}
	return "COMMUNICATE...", "SYNC"
}

// session holds the mutable per-companion state. Every mutation notifies the
// observer with a fresh snapshot.
type session struct {
	mu           sync.Mutex
	mood         model.Mood
	glitch       bool
	thinking     bool
	busy         bool
	lastMemories string
	stage        Stage
	history      model.History

	observe func(State)
}

func newSession(observe func(State)) *session {
	return &session{mood: model.MoodNeutral, stage: StageKey, observe: observe}
}

func (s *session) snapshotLocked() State {
	prompt, action := stageLabels(s.stage, s.busy)
	return State{
		Mood:         s.mood,
		Glitch:       s.glitch,
		Thinking:     s.thinking,
		Busy:         s.busy,
		LastMemories: s.lastMemories,
		Stage:        s.stage,
		Prompt:       prompt,
		Action:       action,
		Audio:        s.mood.Audio(),
		Palette:      s.mood.Palette(),
	}
}

func (s *session) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// update applies fn under the lock and notifies the observer afterwards.
func (s *session) update(fn func(s *session)) {
	s.mu.Lock()
	fn(s)
	st := s.snapshotLocked()
	s.mu.Unlock()

	if s.observe != nil {
		s.observe(st)
	}
}

func (s *session) setMood(m model.Mood) {
	s.update(func(s *session) { s.mood = m })
}

// tryBegin marks a chat turn in flight. It fails if one already is.
func (s *session) tryBegin() bool {
	began := false
	s.update(func(s *session) {
		if !s.busy {
			s.busy = true
			s.thinking = true
			began = true
		}
	})
	return began
}

func (s *session) turns() []model.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

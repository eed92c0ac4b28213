package core

import "github.com/agenthands/symbiosis/internal/core/model"

// Renderer is everything the companion needs from the presentation layer
// (browser canvas, terminal, ...). Calls may arrive from timer goroutines, so
// implementations must be safe for concurrent use.
type Renderer interface {
	// AppendLog adds a line to the conversation log.
	AppendLog(role model.Role, text string)
	// UpdateKeywords replaces the idle floating labels.
	UpdateKeywords(keywords []string)
	// ConsumeGraph hands the turn's knowledge graph to the creature swarm.
	ConsumeGraph(g model.KnowledgeGraph)
	// Speak voices text with the current mood's audio profile.
	Speak(text string)
	// SpawnFood turns the user's text into visual food for the creatures.
	SpawnFood(text string)
	// Feeding reports whether creatures are still consuming input text.
	Feeding() bool
	// ActiveGlyphs is the number of text glyphs still on screen.
	ActiveGlyphs() int
	// StateChanged is called after every session state change.
	StateChanged(state State)
}

// NopRenderer discards everything and reports an idle visual layer.
type NopRenderer struct{}

func (NopRenderer) AppendLog(model.Role, string)       {}
func (NopRenderer) UpdateKeywords([]string)            {}
func (NopRenderer) ConsumeGraph(model.KnowledgeGraph) {}
func (NopRenderer) Speak(string)                       {}
func (NopRenderer) SpawnFood(string)                   {}
func (NopRenderer) Feeding() bool                      { return false }
func (NopRenderer) ActiveGlyphs() int                  { return 0 }
func (NopRenderer) StateChanged(State)                 {}

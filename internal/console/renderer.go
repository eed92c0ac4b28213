// Package console renders the companion in a terminal. Creatures are replaced
// by colored text: speech takes the primary color of the current mood and the
// knowledge graph is drawn as an indented tree.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/agenthands/symbiosis/internal/core"
	"github.com/agenthands/symbiosis/internal/core/model"
)

func hex(c model.RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

type styles struct {
	User   lipgloss.Style
	Speech lipgloss.Style
	Branch lipgloss.Style
	Leaf   lipgloss.Style
	Muted  lipgloss.Style
	Glitch lipgloss.Style
	Prompt lipgloss.Style
}

func newStyles(p model.Palette) styles {
	return styles{
		User:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Speech: lipgloss.NewStyle().Foreground(hex(p.Primary)).Bold(true),
		Branch: lipgloss.NewStyle().Foreground(hex(p.Secondary)),
		Leaf:   lipgloss.NewStyle().Foreground(hex(p.Connector)),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Italic(true),
		Glitch: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff00ff")).Strikethrough(true),
		Prompt: lipgloss.NewStyle().Foreground(hex(p.Primary)),
	}
}

// Renderer writes companion output to a terminal.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	state  core.State
	styles styles
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:    out,
		state:  core.State{Mood: model.MoodNeutral},
		styles: newStyles(model.MoodNeutral.Palette()),
	}
}

func (r *Renderer) println(s string) {
	fmt.Fprintln(r.out, s)
}

// The assistant's log line is skipped: the reply appears once it is spoken.
func (r *Renderer) AppendLog(role model.Role, text string) {
	if role != model.RoleUser {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.styles.User.Render("> " + text))
}

func (r *Renderer) UpdateKeywords(keywords []string) {
	if len(keywords) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.styles.Muted.Render("[" + strings.Join(keywords, " · ") + "]"))
}

func (r *Renderer) ConsumeGraph(g model.KnowledgeGraph) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(r.styles.Speech.Render(strings.ToUpper(g.Center)))
	for _, br := range g.Branches {
		b.WriteString("\n  ")
		b.WriteString(r.styles.Branch.Render(strings.ToUpper(br.Label)))
		for _, leaf := range br.Leaves {
			b.WriteString("\n    ")
			b.WriteString(r.styles.Leaf.Render(strings.ToUpper(leaf.Text)))
		}
	}
	r.println(b.String())
}

func (r *Renderer) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	style := r.styles.Speech
	if r.state.Glitch {
		style = r.styles.Glitch
	}
	r.println(style.Render(text))
}

func (r *Renderer) SpawnFood(string) {}

// A terminal has no creatures to wait for.
func (r *Renderer) Feeding() bool { return false }

func (r *Renderer) ActiveGlyphs() int { return 0 }

// StateChanged recolors output when the mood changes and announces it.
func (r *Renderer) StateChanged(state core.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.state
	r.state = state
	if state.Mood == prev.Mood {
		return
	}
	r.styles = newStyles(state.Palette)
	r.println(r.styles.Muted.Render("~ " + strings.ToLower(string(state.Mood)) + " ~"))
}

// Prompt returns the input prompt for the current stage.
func (r *Renderer) Prompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Prompt == "" {
		return "> "
	}
	return r.styles.Prompt.Render(r.state.Prompt) + " "
}

package core

import (
	"fmt"
	"strings"

	"github.com/agenthands/symbiosis/internal/config"
)

// intakeKey accepts the API key. Input that does not look like a key is
// rejected without touching settings.
func (c *Companion) intakeKey(text string) (*Outcome, error) {
	if len(text) < minKeyLength || !strings.HasPrefix(text, c.cfg.LLM.KeyPrefix) {
		c.renderer.Speak(PhraseInvalidKey)
		return c.outcome(KindIntake), nil
	}

	if err := c.saveSettings(func(s *config.Settings) { s.APIKey = strings.TrimSpace(text) }); err != nil {
		return nil, err
	}
	c.renderer.Speak(PhraseKeyAccepted)
	return c.outcome(KindIntake), nil
}

// intakeMemory accepts the memory webhook URL, or the disable sentinel.
func (c *Companion) intakeMemory(text string) (*Outcome, error) {
	if text == config.MemoryDisabled {
		if err := c.saveSettings(func(s *config.Settings) { s.MemoryURL = config.MemoryDisabled }); err != nil {
			return nil, err
		}
		c.renderer.Speak(PhraseMemoryDisabled)
		return c.outcome(KindIntake), nil
	}

	url := strings.TrimSpace(text)
	if err := config.ValidateURL(url); err != nil {
		c.logger.Debug("rejected memory url")
		c.renderer.Speak(PhraseInvalidMemory)
		return c.outcome(KindIntake), nil
	}

	if err := c.saveSettings(func(s *config.Settings) { s.MemoryURL = url }); err != nil {
		return nil, err
	}
	c.renderer.Speak(PhraseMemoryLinked)
	return c.outcome(KindIntake), nil
}

func (c *Companion) saveSettings(fn func(s *config.Settings)) error {
	c.mu.Lock()
	next := c.current
	fn(&next)
	if err := c.settings.Save(next); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	c.current = next
	c.mu.Unlock()

	c.refreshStage()
	return nil
}

// refreshStage derives the intake stage from what is configured.
func (c *Companion) refreshStage() {
	c.mu.Lock()
	stage := StageReady
	switch {
	case c.apiKeyLocked() == "":
		stage = StageKey
	case !c.preconf && c.memoryURLLocked() == "":
		stage = StageMemory
	}
	c.mu.Unlock()

	c.session.update(func(s *session) { s.stage = stage })
}

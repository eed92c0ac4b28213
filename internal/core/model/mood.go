package model

import (
	"encoding/json"
	"strings"
)

type Mood string

const (
	MoodNeutral      Mood = "NEUTRAL"
	MoodAffectionate Mood = "AFFECTIONATE"
	MoodCryptic      Mood = "CRYPTIC"
	MoodWarning      Mood = "WARNING"
	MoodJoyful       Mood = "JOYFUL"
	MoodCurious      Mood = "CURIOUS"
	MoodSad          Mood = "SAD"
	// MoodGlitch is only ever set locally for rejected input; the model is
	// never offered it.
	MoodGlitch Mood = "GLITCH"
)

// AudioProfile shifts the companion's voice for a mood.
type AudioProfile struct {
	FrequencyShift float64 `json:"f_shift"`
	Speed          float64 `json:"speed"`
}

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Palette colors the creatures: primary body, secondary body, connectors.
type Palette struct {
	Primary   RGB `json:"pri"`
	Secondary RGB `json:"sec"`
	Connector RGB `json:"conn"`
}

var audioProfiles = map[Mood]AudioProfile{
	MoodNeutral:      {1.0, 1.0},
	MoodAffectionate: {0.8, 1.3},
	MoodCryptic:      {0.9, 1.0},
	MoodWarning:      {1.5, 0.6},
	MoodJoyful:       {1.2, 0.9},
	MoodCurious:      {1.3, 1.1},
	MoodSad:          {0.6, 1.8},
	MoodGlitch:       {2.0, 0.4},
}

var palettes = map[Mood]Palette{
	MoodNeutral:      {RGB{255, 255, 255}, RGB{100, 100, 100}, RGB{80, 80, 80}},
	MoodAffectionate: {RGB{255, 50, 150}, RGB{150, 20, 80}, RGB{100, 0, 50}},
	MoodCryptic:      {RGB{0, 255, 150}, RGB{0, 100, 60}, RGB{0, 80, 40}},
	MoodWarning:      {RGB{255, 0, 0}, RGB{150, 0, 0}, RGB{100, 0, 0}},
	MoodJoyful:       {RGB{255, 220, 0}, RGB{180, 150, 0}, RGB{130, 100, 0}},
	MoodCurious:      {RGB{0, 150, 255}, RGB{0, 80, 180}, RGB{0, 60, 140}},
	MoodSad:          {RGB{50, 50, 255}, RGB{20, 20, 150}, RGB{10, 10, 100}},
}

// Moods lists every mood in display order.
var Moods = []Mood{
	MoodNeutral, MoodAffectionate, MoodCryptic, MoodWarning,
	MoodJoyful, MoodCurious, MoodSad, MoodGlitch,
}

// ModelMoods returns the moods the model may choose from.
func ModelMoods() []Mood {
	return Moods[:len(Moods)-1]
}

// ParseMood maps s onto the closed mood set. Anything unrecognized is NEUTRAL.
func ParseMood(s string) Mood {
	m := Mood(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := audioProfiles[m]; ok {
		return m
	}
	return MoodNeutral
}

func (m Mood) Valid() bool {
	_, ok := audioProfiles[m]
	return ok
}

func (m Mood) Audio() AudioProfile {
	if p, ok := audioProfiles[m]; ok {
		return p
	}
	return audioProfiles[MoodNeutral]
}

// Palette returns the mood's colors. GLITCH has no palette and renders with
// NEUTRAL's.
func (m Mood) Palette() Palette {
	if p, ok := palettes[m]; ok {
		return p
	}
	return palettes[MoodNeutral]
}

// UnmarshalText normalizes moods coming from model output.
func (m *Mood) UnmarshalText(text []byte) error {
	*m = ParseMood(string(text))
	return nil
}

// UnmarshalJSON never fails: a mood that is not a JSON string is NEUTRAL.
func (m *Mood) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*m = MoodNeutral
		return nil
	}
	*m = ParseMood(s)
	return nil
}

package model

import (
	"encoding/json"
	"strings"
)

// CommaList is a comma separated list as returned by the synthesizer. Models
// sometimes answer with a JSON array instead; both forms decode to a string.
type CommaList string

func (c *CommaList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CommaList(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		// null or some other shape: treat as empty
		*c = ""
		return nil
	}
	*c = CommaList(strings.Join(items, ", "))
	return nil
}

// Split returns the trimmed, non-empty items.
func (c CommaList) Split() []string {
	var out []string
	for _, part := range strings.Split(string(c), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SynthesisResult is what the synthesizer extracts from a user turn.
type SynthesisResult struct {
	Entities       CommaList `json:"entities"`
	Topics         CommaList `json:"topics"`
	SearchKeywords CommaList `json:"search_keywords"`
	NewFact        *string   `json:"new_fact"`
}

// Fact returns the new fact, if the model produced a usable one.
func (s SynthesisResult) Fact() (string, bool) {
	if s.NewFact == nil {
		return "", false
	}
	fact := strings.TrimSpace(*s.NewFact)
	if fact == "" || strings.EqualFold(fact, "null") {
		return "", false
	}
	return fact, true
}

// MemoryRecord is a fact persisted to the memory store.
type MemoryRecord struct {
	Entities string `json:"entities"`
	Topics   string `json:"topics"`
	Fact     string `json:"fact"`
}

package model

import "encoding/json"

// Reply is the payload of the generation step.
type Reply struct {
	Response string          `json:"response"`
	Mood     Mood            `json:"mood"`
	Graph    *KnowledgeGraph `json:"graph,omitempty"`
	Keywords []string        `json:"keywords,omitempty"`
}

// UnmarshalJSON accepts whatever keyword list the model produced: entries
// that are not strings are dropped and a non-array counts as no keywords.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Response string          `json:"response"`
		Mood     Mood            `json:"mood"`
		Graph    *KnowledgeGraph `json:"graph"`
		Keywords json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Response = raw.Response
	r.Mood = raw.Mood
	r.Graph = raw.Graph
	r.Keywords = decodeStrings(raw.Keywords)
	return nil
}

// HasGraph reports whether the reply carries a usable graph.
func (r Reply) HasGraph() bool {
	return r.Graph != nil && r.Graph.Center != ""
}

func decodeStrings(data json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

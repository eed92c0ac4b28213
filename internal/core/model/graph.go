package model

import "encoding/json"

// KnowledgeGraph is the per-turn concept tree the model returns. It is rebuilt
// every turn and never merged.
type KnowledgeGraph struct {
	Center   string   `json:"center"`
	Mood     Mood     `json:"mood,omitempty"`
	Branches []Branch `json:"branches,omitempty"`
}

func (g *KnowledgeGraph) UnmarshalJSON(data []byte) error {
	var raw struct {
		Center   json.RawMessage `json:"center"`
		Mood     Mood            `json:"mood"`
		Branches json.RawMessage `json:"branches"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object: no graph.
		*g = KnowledgeGraph{}
		return nil
	}
	center := decodeNode(raw.Center)
	g.Center = center.Text
	g.Mood = raw.Mood
	if g.Mood == "" {
		g.Mood = center.Mood
	}
	g.Branches = nil
	_ = json.Unmarshal(raw.Branches, &g.Branches)
	return nil
}

type Branch struct {
	Label  string `json:"label"`
	Mood   Mood   `json:"mood,omitempty"`
	Leaves []Leaf `json:"leaves,omitempty"`
}

func (b *Branch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label  json.RawMessage `json:"label"`
		Text   json.RawMessage `json:"text"`
		Mood   Mood            `json:"mood"`
		Leaves json.RawMessage `json:"leaves"`
	}
	*b = Branch{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// A bare string branch is a label without leaves.
		b.Label = decodeNode(data).Text
		return nil
	}
	b.Label = decodeNode(raw.Label).Text
	if b.Label == "" {
		b.Label = decodeNode(raw.Text).Text
	}
	b.Mood = raw.Mood
	// Leaves that are not an array are ignored.
	_ = json.Unmarshal(raw.Leaves, &b.Leaves)
	return nil
}

// Leaf decodes from either a plain string or a {"text", "mood"} object.
type Leaf struct {
	Text string `json:"text"`
	Mood Mood   `json:"mood,omitempty"`
}

func (l *Leaf) UnmarshalJSON(data []byte) error {
	*l = decodeNode(data)
	return nil
}

// decodeNode reads a graph node given as a bare string or as an object with a
// text or label field. Other shapes decode to an empty node.
func decodeNode(data []byte) Leaf {
	if len(data) == 0 {
		return Leaf{}
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return Leaf{Text: s}
	}
	var obj struct {
		Text  string `json:"text"`
		Label string `json:"label"`
		Mood  Mood   `json:"mood"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return Leaf{}
	}
	if obj.Text == "" {
		obj.Text = obj.Label
	}
	return Leaf{Text: obj.Text, Mood: obj.Mood}
}

// Package graph turns the model's knowledge graph into the flat keyword list
// shown as idle floating labels.
package graph

import (
	"strings"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// Flatten walks g depth-first: the center, then each branch label followed by
// its leaves. Empty entries are dropped and the rest upper-cased.
func Flatten(g model.KnowledgeGraph) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}

	add(g.Center)
	for _, b := range g.Branches {
		add(b.Label)
		for _, leaf := range b.Leaves {
			add(leaf.Text)
		}
	}
	return out
}

// FromKeywords builds a single-level graph for replies that carry a keyword
// list instead of a graph: the first keyword becomes the center and the rest
// leafless branches.
func FromKeywords(keywords []string) model.KnowledgeGraph {
	if len(keywords) == 0 {
		return model.KnowledgeGraph{}
	}
	g := model.KnowledgeGraph{Center: keywords[0]}
	for _, k := range keywords[1:] {
		g.Branches = append(g.Branches, model.Branch{Label: k})
	}
	return g
}

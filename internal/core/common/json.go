package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// CleanJSON strips markdown code fences from an LLM response and returns the
// span from the first '{' to the last '}'. If no such span exists the input is
// returned unchanged.
func CleanJSON(text string) string {
	stripped := fenceReplacer.Replace(text)

	start := strings.IndexByte(stripped, '{')
	end := strings.LastIndexByte(stripped, '}')
	if start == -1 || end == -1 || end < start {
		return text
	}
	return stripped[start : end+1]
}

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like surrounding markdown or extra text.
func ParseJSON[T any](response string) (T, error) {
	var result T
	jsonStr := CleanJSON(response)

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}

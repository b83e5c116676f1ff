package services

import (
	"encoding/json"
	"strings"
)

// CleanJSONResponse strips the Markdown code fences models like to wrap
// around JSON payloads.
func CleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	if strings.HasPrefix(cleaned, "```json") || strings.HasPrefix(cleaned, "```JSON") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")

	return strings.TrimSpace(cleaned)
}

// DecodeJSON parses a model response into target after fence stripping.
// This is the single point where a stage receives either a well-typed model
// result or a hard *MalformedOutputError; parse failures are never retried.
func DecodeJSON(response, context string, target interface{}) error {
	cleaned := CleanJSONResponse(response)

	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return &MalformedOutputError{Context: context, Err: err}
	}

	return nil
}

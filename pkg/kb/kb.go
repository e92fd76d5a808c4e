// Package kb loads the static knowledge base handed to the AI session as
// part of its system instructions. The relay treats the result as an opaque
// string; nothing here is consulted at call time.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type KnowledgeBase struct {
	raw json.RawMessage
}

// Load reads and validates the knowledge base file. A configured but
// unreadable file is a startup error, never a per-call one.
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("knowledge base %s is not valid JSON", path)
	}
	return &KnowledgeBase{raw: json.RawMessage(data)}, nil
}

// JSON returns the raw knowledge base document.
func (k *KnowledgeBase) JSON() string {
	if k == nil {
		return ""
	}
	return string(k.raw)
}

// BuildInstructions appends the knowledge base to the base prompt to form
// the session instructions.
func BuildInstructions(basePrompt string, k *KnowledgeBase) string {
	basePrompt = strings.TrimSpace(basePrompt)
	doc := ""
	if k != nil {
		doc = strings.TrimSpace(k.JSON())
	}
	if doc == "" {
		return basePrompt
	}
	if basePrompt == "" {
		return "Knowledge base JSON:\n" + doc
	}
	return basePrompt + "\n\nKnowledge base JSON:\n" + doc
}

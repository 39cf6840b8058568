package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"oro/models"
)

//go:embed data/knowledge_base.json
var defaultKnowledgeBase []byte

// KnowledgeBase is the static list of knowledge entries.
// It is built once at startup and never mutated afterwards.
type KnowledgeBase struct {
	entries []models.KnowledgeEntry
}

// NewKnowledgeBase validates and normalizes entries, keeping declaration order
func NewKnowledgeBase(entries []models.KnowledgeEntry) (*KnowledgeBase, error) {
	normalized := make([]models.KnowledgeEntry, 0, len(entries))

	for i, entry := range entries {
		if strings.TrimSpace(entry.Information) == "" {
			return nil, fmt.Errorf("knowledge entry %d: information is empty", i)
		}

		keywords := make([]string, 0, len(entry.Keywords))
		for _, keyword := range entry.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				return nil, fmt.Errorf("knowledge entry %d: blank keyword", i)
			}
			keywords = append(keywords, keyword)
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("knowledge entry %d: no keywords", i)
		}

		normalized = append(normalized, models.KnowledgeEntry{
			Keywords:    keywords,
			Information: strings.TrimSpace(entry.Information),
			Source:      strings.TrimSpace(entry.Source),
		})
	}

	return &KnowledgeBase{entries: normalized}, nil
}

// ParseKnowledgeBase builds a knowledge base from a JSON array of entries
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var entries []models.KnowledgeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base: %w", err)
	}
	return NewKnowledgeBase(entries)
}

// LoadKnowledgeBase reads the knowledge base from path, or the embedded default set when path is empty
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	if path == "" {
		return ParseKnowledgeBase(defaultKnowledgeBase)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}
	return ParseKnowledgeBase(data)
}

// Match returns the first entry, in declaration order, with a keyword contained in message
func (kb *KnowledgeBase) Match(message string) (models.KnowledgeEntry, bool) {
	lowercaseMessage := strings.ToLower(message)

	for _, entry := range kb.entries {
		for _, keyword := range entry.Keywords {
			if strings.Contains(lowercaseMessage, keyword) {
				return copyEntry(entry), true
			}
		}
	}

	return models.KnowledgeEntry{}, false
}

// Entries returns a copy of all entries in declaration order
func (kb *KnowledgeBase) Entries() []models.KnowledgeEntry {
	out := make([]models.KnowledgeEntry, len(kb.entries))
	for i, entry := range kb.entries {
		out[i] = copyEntry(entry)
	}
	return out
}

// Len returns the number of entries
func (kb *KnowledgeBase) Len() int {
	return len(kb.entries)
}

func copyEntry(entry models.KnowledgeEntry) models.KnowledgeEntry {
	keywords := make([]string, len(entry.Keywords))
	copy(keywords, entry.Keywords)
	entry.Keywords = keywords
	return entry
}

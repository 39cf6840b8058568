package models

// KnowledgeEntry is one record of the static knowledge base
type KnowledgeEntry struct {
	Keywords    []string `json:"keywords"`
	Information string   `json:"information"`
	Source      string   `json:"source"`
}

// RetrievedEntry is a knowledge entry returned by similarity search
type RetrievedEntry struct {
	Entry      KnowledgeEntry `json:"entry"`
	Similarity float32        `json:"similarity"`
}

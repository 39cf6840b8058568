package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"oro/config"
	"oro/models"
)

const (
	knowledgeCollection = "knowledge"
	providerEmbedding   = "embedding"
)

// Retriever finds the knowledge entries most similar to a query
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievedEntry, error)
}

// VectorIndex is an in-memory chromem-go collection holding one document per knowledge entry
type VectorIndex struct {
	db            *chromem.DB
	collection    *chromem.Collection
	entries       []models.KnowledgeEntry
	minSimilarity float32
}

// NewEmbeddingFunc picks the embedding backend matching the completion provider
func NewEmbeddingFunc(cfg *config.Config) chromem.EmbeddingFunc {
	if cfg.LLMProvider == config.ProviderOllama {
		return chromem.NewEmbeddingFuncOllama(cfg.OllamaEmbeddingModel, strings.TrimRight(cfg.OllamaBaseURL, "/")+"/api")
	}
	return chromem.NewEmbeddingFuncOpenAI(cfg.OpenAIAPIKey, chromem.EmbeddingModelOpenAI(cfg.OpenAIEmbeddingModel))
}

// NewVectorIndex embeds every knowledge entry into a fresh collection
func NewVectorIndex(ctx context.Context, kb *KnowledgeBase, embed chromem.EmbeddingFunc, minSimilarity float32) (*VectorIndex, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(knowledgeCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	entries := kb.Entries()
	documents := make([]chromem.Document, 0, len(entries))
	for i, entry := range entries {
		documents = append(documents, chromem.Document{
			ID:      fmt.Sprintf("kb_%d", i),
			Content: entry.Information,
			Metadata: map[string]string{
				"source": entry.Source,
				"index":  strconv.Itoa(i),
			},
		})
	}

	if len(documents) > 0 {
		if err := collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to index knowledge base: %w", err)
		}
	}

	log.Printf("Knowledge index built with %d entries", len(documents))

	return &VectorIndex{
		db:            db,
		collection:    collection,
		entries:       entries,
		minSimilarity: minSimilarity,
	}, nil
}

// Search returns up to k entries, most similar first, skipping those below the similarity floor
func (v *VectorIndex) Search(ctx context.Context, query string, k int) ([]models.RetrievedEntry, error) {
	count := v.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	// embeds the query through the provider
	results, err := v.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		var providerErr *ProviderError
		if errors.As(err, &providerErr) {
			return nil, err
		}
		providerErr = newProviderError(providerEmbedding, 0, fmt.Errorf("failed to query collection: %w", err))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			providerErr.Transient = true
		}
		return nil, providerErr
	}

	var found []models.RetrievedEntry
	for _, result := range results {
		if result.Similarity < v.minSimilarity {
			continue
		}
		index, err := strconv.Atoi(result.Metadata["index"])
		if err != nil || index < 0 || index >= len(v.entries) {
			return nil, fmt.Errorf("document %s has no valid entry index", result.ID)
		}
		found = append(found, models.RetrievedEntry{
			Entry:      copyEntry(v.entries[index]),
			Similarity: result.Similarity,
		})
	}

	return found, nil
}

// GetStatus returns the status of the vector index
func (v *VectorIndex) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"status":          "active",
		"collection_name": knowledgeCollection,
		"document_count":  v.collection.Count(),
		"min_similarity":  v.minSimilarity,
	}
}

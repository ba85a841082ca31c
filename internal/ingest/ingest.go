// Package ingest loads pre-embedded chunk batches produced by the offline
// knowledge-base pipeline into the chunk store.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/google/uuid"
)

// batchSize matches the upload batching of the offline pipeline.
const batchSize = 100

// maxLineBytes bounds a single JSONL record; chunk content tops out around
// 4k characters plus a 1536-float embedding.
const maxLineBytes = 1 << 20

// ChunkWriter defines the repository interface for storing ingested chunks.
// InsertBatch reports how many chunks it persisted. On error that count
// points at the failing chunk, with every earlier chunk already stored.
type ChunkWriter interface {
	InsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) (int, error)
}

// record is one JSONL line as emitted by the ingestion pipeline.
type record struct {
	SourcePDF  string            `json:"source_pdf"`
	ChunkIndex int               `json:"chunk_index"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata"`
	IsPublic   bool              `json:"is_public"`
}

// Result summarizes one ingestion run.
type Result struct {
	Inserted int
	Failed   int
}

// Ingester validates and stores chunk batches.
type Ingester struct {
	writer     ChunkWriter
	dimensions int
}

func NewIngester(writer ChunkWriter, dimensions int) *Ingester {
	if dimensions <= 0 {
		dimensions = domain.EmbeddingDimensions
	}
	return &Ingester{
		writer:     writer,
		dimensions: dimensions,
	}
}

// Run reads JSONL records and inserts them in batches. A record with a
// mismatched embedding dimensionality is rejected, never padded or
// truncated. A failed batch resumes per record from the failing chunk so one
// bad record does not sink its neighbors.
func (i *Ingester) Run(ctx context.Context, r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	result := &Result{}
	batch := make([]*domain.DocumentChunk, 0, batchSize)
	line := 0

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return result, fmt.Errorf("line %d: invalid record: %w", line, err)
		}

		chunk, err := i.toChunk(rec)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, chunk)
		if len(batch) == batchSize {
			i.flush(ctx, batch, result)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("reading batch input: %w", err)
	}

	if len(batch) > 0 {
		i.flush(ctx, batch, result)
	}

	return result, nil
}

func (i *Ingester) toChunk(rec record) (*domain.DocumentChunk, error) {
	if rec.SourcePDF == "" || rec.Content == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if len(rec.Embedding) != i.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &domain.DocumentChunk{
		ID:             uuid.NewString(),
		SourceDocument: rec.SourcePDF,
		ChunkIndex:     rec.ChunkIndex,
		Content:        rec.Content,
		Embedding:      rec.Embedding,
		Metadata:       metadata,
		IsPublic:       rec.IsPublic,
	}, nil
}

func (i *Ingester) flush(ctx context.Context, batch []*domain.DocumentChunk, result *Result) {
	n, err := i.writer.InsertBatch(ctx, batch)
	result.Inserted += n
	if err == nil {
		return
	}

	// Chunks before position n are already stored. Count the failing chunk
	// and resume one record at a time from the one after it, so a single
	// conflict neither discards nor double-inserts the rest of the batch.
	failed := batch[n]
	log.Printf("ingest: failed chunk %s[%d]: %v", failed.SourceDocument, failed.ChunkIndex, err)
	result.Failed++

	for _, chunk := range batch[n+1:] {
		m, err := i.writer.InsertBatch(ctx, []*domain.DocumentChunk{chunk})
		result.Inserted += m
		if err != nil {
			log.Printf("ingest: failed chunk %s[%d]: %v", chunk.SourceDocument, chunk.ChunkIndex, err)
			result.Failed++
		}
	}
}

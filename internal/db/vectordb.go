// Package db provides the embedded storage engines behind the repositories.
package db

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/models"
)

// VectorChunk is the engine's row format: one chunk of one document inside
// one collection partition, with its embedding packed as a float32 blob.
type VectorChunk struct {
	ID           string    `gorm:"column:id;primaryKey;size:512"`
	CollectionID string    `gorm:"column:collection_id;not null;index:idx_vector_chunks_collection;size:255"`
	DocID        string    `gorm:"column:doc_id;not null;index:idx_vector_chunks_doc;size:255"`
	Document     string    `gorm:"column:document;not null"`
	Embedding    []byte    `gorm:"column:embedding"`
	Metadata     string    `gorm:"column:metadata"`
	ChunkIndex   int       `gorm:"column:chunk_index"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for VectorChunk.
func (VectorChunk) TableName() string {
	return "vector_chunks"
}

// VectorDB is one user's embedded vector index. Collections are partitions
// keyed by collection_id inside the same database file, so opening a user
// opens all their partitions at once.
type VectorDB struct {
	db   *gorm.DB
	path string
	mu   sync.Mutex
}

// OpenVectorDB opens (creating if needed) the index under dir.
func OpenVectorDB(dir string) (*VectorDB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	path := filepath.Join(dir, "index.db")
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	if err := gdb.AutoMigrate(&VectorChunk{}); err != nil {
		return nil, fmt.Errorf("failed to migrate vector index: %w", err)
	}

	return &VectorDB{db: gdb, path: path}, nil
}

// Path returns the index file location.
func (v *VectorDB) Path() string {
	return v.path
}

// Close releases the underlying database handle.
func (v *VectorDB) Close() error {
	sqlDB, err := v.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add writes chunks into the collection partition in one transaction.
// Chunk ids must be unique within the index; duplicates fail the batch.
func (v *VectorDB) Add(ctx context.Context, collectionID string, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]VectorChunk, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := ""
		if chunk.Metadata != nil {
			data, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode chunk metadata: %w", err)
			}
			metadata = string(data)
		}

		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		rows = append(rows, VectorChunk{
			ID:           chunk.ID,
			CollectionID: collectionID,
			DocID:        chunk.DocID,
			Document:     chunk.Text,
			Embedding:    EncodeEmbedding(chunk.Embedding),
			Metadata:     metadata,
			ChunkIndex:   chunk.ChunkIndex,
			CreatedAt:    createdAt,
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.db.WithContext(ctx).Create(&rows).Error
}

// Query scans the collection partition and returns the topK chunks nearest
// to the query embedding by cosine distance, best first.
func (v *VectorDB) Query(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	var rows []VectorChunk
	err := v.db.WithContext(ctx).
		Where("collection_id = ? AND embedding IS NOT NULL", collectionID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %s: %w", collectionID, err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		vec := DecodeEmbedding(row.Embedding)
		score := embedding.CosineSimilarity(queryEmbedding, vec)
		results = append(results, models.SearchResult{
			ChunkID:  row.ID,
			DocID:    row.DocID,
			Text:     row.Document,
			Score:    score,
			Distance: 1 - score,
			Metadata: decodeMetadata(row.Metadata),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// GetAll lists the collection's chunks without embeddings, in insertion
// order. limit <= 0 returns everything.
func (v *VectorDB) GetAll(ctx context.Context, collectionID string, limit int) ([]models.IndexedChunk, error) {
	q := v.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("doc_id ASC, chunk_index ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []VectorChunk
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collectionID, err)
	}

	chunks := make([]models.IndexedChunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, models.IndexedChunk{
			ID:       row.ID,
			DocID:    row.DocID,
			Document: row.Document,
			Metadata: decodeMetadata(row.Metadata),
		})
	}
	return chunks, nil
}

// Count returns the number of chunks in the collection partition.
func (v *VectorDB) Count(ctx context.Context, collectionID string) (int64, error) {
	var count int64
	err := v.db.WithContext(ctx).
		Model(&VectorChunk{}).
		Where("collection_id = ?", collectionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collectionID, err)
	}
	return count, nil
}

// DeleteByDoc removes every chunk of docID from the collection partition
// and reports how many were removed.
func (v *VectorDB) DeleteByDoc(ctx context.Context, collectionID, docID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	result := v.db.WithContext(ctx).
		Where("collection_id = ? AND doc_id = ?", collectionID, docID).
		Delete(&VectorChunk{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", docID, result.Error)
	}
	return result.RowsAffected, nil
}

// ExistsDoc reports whether any chunk of docID is present in the partition.
func (v *VectorDB) ExistsDoc(ctx context.Context, collectionID, docID string) (bool, error) {
	var count int64
	err := v.db.WithContext(ctx).
		Model(&VectorChunk{}).
		Where("collection_id = ? AND doc_id = ?", collectionID, docID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", docID, err)
	}
	return count > 0, nil
}

func decodeMetadata(raw string) map[string]interface{} {
	if raw == "" {
		return nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil
	}
	return metadata
}

// EncodeEmbedding packs a vector into a little-endian float32 blob.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding unpacks a float32 blob produced by EncodeEmbedding.
func DecodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

package models

import (
	"time"
)

// Default collection identity. Every user owns an implicit collection that
// receives uploads submitted without an explicit collection_id.
const (
	DefaultCollectionName        = "默认集合"
	DefaultCollectionDescription = "用户默认知识库集合，用于存储未指定集合的文档"
)

// DefaultCollectionID returns the id of a user's implicit default collection.
func DefaultCollectionID(userToken string) string {
	return "default_" + userToken
}

// Collection is a named partition of a user's documents. It is the
// access-control unit for both metadata queries and the vector index;
// created_by is the owning user.
type Collection struct {
	CollectionID   string    `gorm:"column:collection_id;primaryKey;size:255" json:"collection_id"`
	CollectionName string    `gorm:"column:collection_name;not null;size:255" json:"collection_name"`
	Description    string    `gorm:"column:description" json:"description,omitempty"`
	CreateTime     time.Time `gorm:"column:create_time;not null" json:"create_time"`
	CreatedBy      string    `gorm:"column:created_by;not null;index:idx_kb_collections_created_by;size:255" json:"created_by"`

	Creator *UserInfo `gorm:"foreignKey:CreatedBy;references:UserToken" json:"-"`
}

// TableName returns the table name for Collection.
func (Collection) TableName() string {
	return "kb_collections"
}

// IsDefault reports whether the collection is its owner's implicit default.
func (c *Collection) IsDefault() bool {
	return c.CollectionID == DefaultCollectionID(c.CreatedBy)
}

// CollectionRequest represents a request to create a collection
type CollectionRequest struct {
	CollectionID string `json:"collection_id"`
	Name         string `json:"collection_name"`
	Description  string `json:"description,omitempty"`
}

// Validate validates the collection request
func (cr *CollectionRequest) Validate() error {
	if cr.CollectionID == "" {
		return &ValidationError{Field: "collection_id", Message: "collection id is required"}
	}
	if cr.Name == "" {
		return &ValidationError{Field: "collection_name", Message: "collection name is required"}
	}
	// Collection ids should be alphanumeric with hyphens and underscores
	for _, char := range cr.CollectionID {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_') {
			return &ValidationError{
				Field:   "collection_id",
				Message: "collection id must contain only alphanumeric characters, hyphens, and underscores",
			}
		}
	}
	if len(cr.CollectionID) > 100 {
		return &ValidationError{Field: "collection_id", Message: "collection id cannot exceed 100 characters"}
	}
	return nil
}

// CollectionWithCount pairs a collection with its upload-record count.
type CollectionWithCount struct {
	Collection
	DocumentCount int64 `json:"document_count"`
}

// CollectionStats summarizes a collection's footprint inside the vector index.
type CollectionStats struct {
	CollectionID  string `json:"collection_id"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}

// IndexedDocument is a document as seen through the vector index: one entry
// per distinct doc_id found among a collection's chunk metadata.
type IndexedDocument struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	Collection string    `json:"collection"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

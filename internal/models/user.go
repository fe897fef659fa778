package models

import (
	"time"
)

// UserInfo is a tenant row. Users are identified by an opaque bearer token
// and are created lazily on first submission.
type UserInfo struct {
	UserToken  string    `gorm:"column:user_token;primaryKey;size:255" json:"user_token"`
	CreateTime time.Time `gorm:"column:create_time;not null" json:"create_time"`
}

// TableName returns the table name for UserInfo.
func (UserInfo) TableName() string {
	return "user_info"
}

// UserStorageInfo reports the on-disk footprint of a user's blob tree.
type UserStorageInfo struct {
	UserToken      string `json:"user_token"`
	OriginBytes    int64  `json:"origin_bytes"`
	ProcessedBytes int64  `json:"processed_bytes"`
	TotalBytes     int64  `json:"total_bytes"`
	FileCount      int    `json:"file_count"`
}

// UserFileInfo is one origin-directory entry as reported by the blob store.
type UserFileInfo struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Processed bool      `json:"processed"`
}

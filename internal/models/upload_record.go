package models

import (
	"time"
)

// Status is the lifecycle state of an upload record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValid checks if the status is a known state
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving to next is a legal transition.
// Legal sequences: pending→processing, processing→completed, processing→failed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// UploadRecord is the durable source of truth for one submitted document.
// The pipeline is the only writer after insertion.
type UploadRecord struct {
	DocID            string     `gorm:"column:doc_id;primaryKey;size:255" json:"doc_id"`
	UserToken        string     `gorm:"column:user_token;not null;index:idx_upload_user_token;size:255" json:"user_token"`
	CollectionID     string     `gorm:"column:collection_id;index:idx_upload_collection;size:255" json:"collection_id"`
	Filename         string     `gorm:"column:filename;not null" json:"filename"`
	Status           Status     `gorm:"column:status;not null;index:idx_upload_status;size:32" json:"status"`
	UploadTime       time.Time  `gorm:"column:upload_time;not null" json:"upload_time"`
	ProcessStartTime *time.Time `gorm:"column:process_start_time" json:"process_start_time,omitempty"`
	ProcessEndTime   *time.Time `gorm:"column:process_end_time" json:"process_end_time,omitempty"`
	ErrMsg           string     `gorm:"column:err_msg" json:"err_msg,omitempty"`
	MimeType         string     `gorm:"column:mime_type" json:"mime_type,omitempty"`

	// Navigation fields so the schema carries real foreign keys.
	User       *UserInfo   `gorm:"foreignKey:UserToken;references:UserToken" json:"-"`
	Collection *Collection `gorm:"foreignKey:CollectionID;references:CollectionID" json:"-"`
}

// TableName returns the table name for UploadRecord.
func (UploadRecord) TableName() string {
	return "user_upload_record"
}

// Validate checks if the record is insertable
func (r *UploadRecord) Validate() error {
	if r.DocID == "" {
		return &ValidationError{Field: "doc_id", Message: "doc id is required"}
	}
	if r.UserToken == "" {
		return &ValidationError{Field: "user_token", Message: "user token is required"}
	}
	if r.Filename == "" {
		return &ValidationError{Field: "filename", Message: "filename is required"}
	}
	if !r.Status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid status: " + string(r.Status)}
	}
	return nil
}

// Duration returns the processing duration, or zero if not yet terminal.
func (r *UploadRecord) Duration() time.Duration {
	if r.ProcessStartTime == nil || r.ProcessEndTime == nil {
		return 0
	}
	return r.ProcessEndTime.Sub(*r.ProcessStartTime)
}

// UploadRecordDTO represents the API view of an upload record
type UploadRecordDTO struct {
	DocID            string `json:"doc_id"`
	UserToken        string `json:"user_token"`
	CollectionID     string `json:"collection_id"`
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	UploadTime       string `json:"upload_time"`
	ProcessStartTime string `json:"process_start_time,omitempty"`
	ProcessEndTime   string `json:"process_end_time,omitempty"`
	ErrMsg           string `json:"err_msg,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
}

// ToDTO converts UploadRecord domain model to DTO
func (r *UploadRecord) ToDTO() UploadRecordDTO {
	dto := UploadRecordDTO{
		DocID:        r.DocID,
		UserToken:    r.UserToken,
		CollectionID: r.CollectionID,
		Filename:     r.Filename,
		Status:       string(r.Status),
		UploadTime:   r.UploadTime.Format(time.RFC3339),
		ErrMsg:       r.ErrMsg,
		MimeType:     r.MimeType,
	}

	if r.ProcessStartTime != nil {
		dto.ProcessStartTime = r.ProcessStartTime.Format(time.RFC3339)
	}
	if r.ProcessEndTime != nil {
		dto.ProcessEndTime = r.ProcessEndTime.Format(time.RFC3339)
	}

	return dto
}

// UploadRecordUpdate carries the whitelisted mutable fields of a record.
// Nil pointers are left untouched by the store.
type UploadRecordUpdate struct {
	CollectionID     *string
	Filename         *string
	Status           *Status
	UploadTime       *time.Time
	ProcessStartTime *time.Time
	ProcessEndTime   *time.Time
	ErrMsg           *string
	MimeType         *string
}

// Fields expands the update into a column→value map for the store.
func (u *UploadRecordUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.CollectionID != nil {
		fields["collection_id"] = *u.CollectionID
	}
	if u.Filename != nil {
		fields["filename"] = *u.Filename
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.UploadTime != nil {
		fields["upload_time"] = *u.UploadTime
	}
	if u.ProcessStartTime != nil {
		fields["process_start_time"] = *u.ProcessStartTime
	}
	if u.ProcessEndTime != nil {
		fields["process_end_time"] = *u.ProcessEndTime
	}
	if u.ErrMsg != nil {
		fields["err_msg"] = *u.ErrMsg
	}
	if u.MimeType != nil {
		fields["mime_type"] = *u.MimeType
	}
	return fields
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is treat validation failures as invalid arguments.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

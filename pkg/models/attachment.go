package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScanStatusPending   = "PENDING"
	ScanStatusScanning  = "SCANNING"
	ScanStatusClean     = "CLEAN"
	ScanStatusInfected  = "INFECTED"
	ScanStatusFailed    = "FAILED"
)

const MaxAttachmentBytes = 10 * 1024 * 1024 // 10 MiB

// AllowedAttachmentMIMETypes is the upload whitelist.
var AllowedAttachmentMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword":  true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Attachment is evidence uploaded to an incident. scan_status is advanced only by the scanning job.
type Attachment struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	IncidentID  uuid.UUID `db:"incident_id"  json:"incident_id"`
	TenantID    uuid.UUID `db:"tenant_id"    json:"tenant_id"`
	FileName    string    `db:"file_name"    json:"file_name"`
	MimeType    string    `db:"mime_type"    json:"mime_type"`
	SizeBytes   int64     `db:"size_bytes"   json:"size_bytes"`
	StorageURL  string    `db:"storage_url"  json:"storage_url"`
	ScanStatus  string    `db:"scan_status"  json:"scan_status"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

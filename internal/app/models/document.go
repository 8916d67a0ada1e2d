package models

import "time"

// DocumentType is the category of an uploaded student document
type DocumentType string

const (
	DocumentBirthCertificate DocumentType = "birth_certificate"
	DocumentTranscript       DocumentType = "transcript"
	DocumentDiploma          DocumentType = "diploma"
	DocumentIDPhoto          DocumentType = "id_photo"
	DocumentMedical          DocumentType = "medical"
	DocumentOther            DocumentType = "other"
)

// IsValid reports whether t is a known type
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentBirthCertificate, DocumentTranscript, DocumentDiploma, DocumentIDPhoto, DocumentMedical, DocumentOther:
		return true
	}
	return false
}

// DocumentStatus is the verification state of a document
type DocumentStatus string

const (
	DocumentPending        DocumentStatus = "pending"
	DocumentVerified       DocumentStatus = "verified"
	DocumentRequiresUpdate DocumentStatus = "requires_update"
	DocumentRejected       DocumentStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentPending, DocumentVerified, DocumentRequiresUpdate, DocumentRejected:
		return true
	}
	return false
}

// IsReviewOutcome reports whether s is a status a reviewer may assign
func (s DocumentStatus) IsReviewOutcome() bool {
	return s == DocumentVerified || s == DocumentRequiresUpdate || s == DocumentRejected
}

// Document is an uploaded file under review
type Document struct {
	ID           int64          `json:"id" db:"id"`
	StudentID    int64          `json:"studentId" db:"student_id"`
	DocumentType DocumentType   `json:"documentType" db:"document_type"`
	File         StoredFile     `json:"file"`
	Status       DocumentStatus `json:"status" db:"status"`
	Notes        *string        `json:"notes,omitempty" db:"notes"`
	VerifiedBy   *int64         `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt   *time.Time     `json:"verifiedAt,omitempty" db:"verified_at"`
	SupersedesID *int64         `json:"supersedesId,omitempty" db:"supersedes_id"`
	UploadedBy   int64          `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt" db:"updated_at"`
}

// DocumentFilter narrows document lists
type DocumentFilter struct {
	StudentID *int64
	Status    *DocumentStatus
	Type      *DocumentType
}

package filestorage

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/yigit/enrolladmin/internal/app/models"
)

// Upload categories. Documents are further split by document type.
const (
	CategoryDocuments = "documents"
	CategoryReceipts  = "receipts"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Validate checks extension, size and sniffed content type without writing anything
	Validate(fileHeader *multipart.FileHeader) error

	// Save validates and stores a file under category with a random name
	Save(ctx context.Context, fileHeader *multipart.FileHeader, category string) (*models.StoredFile, error)

	// Open returns the stored bytes for a path previously returned by Save
	Open(path string) (io.ReadSeekCloser, error)

	// FullPath resolves a stored path to its location on disk
	FullPath(path string) (string, error)

	// Delete removes a stored file. Missing files are not an error.
	Delete(path string) error
}

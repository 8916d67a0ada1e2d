package filestorage

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

// DefaultMaxFileSize is the per-file upload limit
const DefaultMaxFileSize int64 = 10 << 20

// allowedTypes maps each accepted extension to the content types its bytes may
// sniff as. Legacy office files sniff as OLE containers and OOXML files as zip
// archives when the detector cannot look deep enough.
var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
}

// AllowedExtensions lists the accepted extensions without the leading dot
func AllowedExtensions() []string {
	return []string{"jpeg", "jpg", "png", "gif", "pdf", "doc", "docx", "xls", "xlsx"}
}

// Validator checks uploads against the extension allowlist, a size limit and
// the content type sniffed from the file's leading bytes.
type Validator struct {
	MaxSize int64
}

// NewValidator creates a validator. A non-positive limit uses DefaultMaxFileSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Validator{MaxSize: maxSize}
}

// Validate returns the detected MIME type of an acceptable file
func (v *Validator) Validate(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", apperrors.NewValidationError("file", "file is required")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return "", apperrors.ErrUnsupportedFileType.WithDetails(map[string]interface{}{
			"filename": fileHeader.Filename,
			"allowed":  AllowedExtensions(),
		})
	}

	if fileHeader.Size > v.MaxSize {
		return "", apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"size":    fileHeader.Size,
			"maxSize": v.MaxSize,
		})
	}
	if fileHeader.Size == 0 {
		return "", apperrors.NewValidationError("file", "file is empty")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}

	for m := detected; m != nil; m = m.Parent() {
		for _, want := range accepted {
			if m.Is(want) {
				return detected.String(), nil
			}
		}
	}

	return "", apperrors.ErrUnsupportedFileType.WithDetails(map[string]interface{}{
		"filename": fileHeader.Filename,
		"detected": detected.String(),
	})
}

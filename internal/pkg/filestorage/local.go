package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath  string // The root directory where files will be stored
	baseURL   string // Public prefix the root is served under, e.g. /uploads
	validator *Validator
}

// NewLocalStorage creates a new LocalStorage instance rooted at basePath.
// Stored files are addressed publicly as baseURL + "/" + relative path.
func NewLocalStorage(basePath, baseURL string, maxFileSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", abs).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath:  abs,
		baseURL:   strings.TrimRight(baseURL, "/"),
		validator: NewValidator(maxFileSize),
	}, nil
}

// BasePath returns the storage root on disk
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Validate implements FileStorage
func (ls *LocalStorage) Validate(fileHeader *multipart.FileHeader) error {
	_, err := ls.validator.Validate(fileHeader)
	return err
}

// Save implements FileStorage
func (ls *LocalStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, category string) (*models.StoredFile, error) {
	mimeType, err := ls.validator.Validate(fileHeader)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category = path.Clean("/" + filepath.ToSlash(category))[1:]
	dir := filepath.Join(ls.basePath, filepath.FromSlash(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dstPath := filepath.Join(dir, name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	rel := path.Join(category, name)
	stored := &models.StoredFile{
		Path:         rel,
		URL:          ls.baseURL + "/" + rel,
		OriginalName: filepath.Base(fileHeader.Filename),
		MimeType:     mimeType,
		Size:         written,
	}

	logger.Info().Str("filename", stored.OriginalName).Str("saved_as", rel).Int64("size", written).Msg("File saved successfully")
	return stored, nil
}

// FullPath resolves a stored relative path and refuses anything outside the root
func (ls *LocalStorage) FullPath(p string) (string, error) {
	if p == "" {
		return "", apperrors.ErrFileNotFound
	}
	clean := path.Clean("/" + filepath.ToSlash(p))
	full := filepath.Join(ls.basePath, filepath.FromSlash(clean))
	rel, err := filepath.Rel(ls.basePath, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apperrors.ErrFileNotFound
	}
	return full, nil
}

// Open implements FileStorage
func (ls *LocalStorage) Open(p string) (io.ReadSeekCloser, error) {
	full, err := ls.FullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// Delete removes a file from the storage filesystem.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) Delete(p string) error {
	if p == "" {
		return nil
	}
	full, err := ls.FullPath(p)
	if err != nil {
		return fmt.Errorf("invalid file path: %s", p)
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", full).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", full).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", full).Msg("File deleted successfully")
	return nil
}

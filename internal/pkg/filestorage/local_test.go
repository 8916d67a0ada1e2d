package filestorage

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0x01}, 64)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")
)

// fileHeader builds a multipart.FileHeader the way an HTTP request would carry it
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestValidatorRejections(t *testing.T) {
	v := NewValidator(1024)

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  error
	}{
		{"executable", "setup.exe", []byte("MZ\x90\x00"), apperrors.ErrUnsupportedFileType},
		{"no extension", "README", []byte("hello"), apperrors.ErrUnsupportedFileType},
		{"disguised text", "photo.png", []byte("just some text pretending"), apperrors.ErrUnsupportedFileType},
		{"too large", "scan.pdf", append(pdfBytes, bytes.Repeat([]byte("x"), 2048)...), apperrors.ErrFileTooLarge},
		{"empty", "scan.pdf", []byte{}, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(fileHeader(t, tt.filename, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidatorAcceptsAllowedTypes(t *testing.T) {
	v := NewValidator(0)
	assert.Equal(t, DefaultMaxFileSize, v.MaxSize)

	mime, err := v.Validate(fileHeader(t, "Photo.PNG", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = v.Validate(fileHeader(t, "transcript.pdf", pdfBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mime, "application/pdf"))
}

func TestSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads/", 0)
	require.NoError(t, err)

	stored, err := ls.Save(context.Background(), fileHeader(t, "my transcript.pdf", pdfBytes), "documents/transcript")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.Path, "documents/transcript/"))
	assert.True(t, strings.HasSuffix(stored.Path, ".pdf"))
	assert.NotContains(t, stored.Path, "my transcript")
	assert.Equal(t, "/uploads/"+stored.Path, stored.URL)
	assert.Equal(t, "my transcript.pdf", stored.OriginalName)
	assert.Equal(t, int64(len(pdfBytes)), stored.Size)

	f, err := ls.Open(stored.Path)
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	require.NoError(t, ls.Delete(stored.Path))
	_, err = ls.Open(stored.Path)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	assert.NoError(t, ls.Delete(stored.Path))
}

func TestSaveRejectsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads", 0)
	require.NoError(t, err)

	_, err = ls.Save(context.Background(), fileHeader(t, "virus.exe", []byte("MZ\x90\x00")), CategoryReceipts)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedMedia)

	_, statErr := os.Stat(filepath.Join(dir, CategoryReceipts))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFullPathStaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "/uploads", 0)
	require.NoError(t, err)

	full, err := ls.FullPath("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, ls.BasePath()))

	_, err = ls.FullPath("")
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	_, err = ls.FullPath("/")
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
}

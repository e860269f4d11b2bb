package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/example/contacts-backend/internal/models"
)

func isAllowedDocumentType(t string) bool {
	switch t {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image/png",
		"image/jpeg":
		return true
	}
	return false
}

var allowedDocumentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".png": true, ".jpg": true, ".jpeg": true,
}

// DocumentService validates uploads and stores them under a per-user prefix.
type DocumentService struct {
	blobs    BlobStore
	maxBytes int64
	timeout  time.Duration
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(blobs BlobStore, maxBytes int64, timeout time.Duration) *DocumentService {
	return &DocumentService{blobs: blobs, maxBytes: maxBytes, timeout: timeout}
}

// Validate checks size, extension and sniffed content type.
func (s *DocumentService) Validate(doc *models.Document) error {
	if doc == nil {
		return nil
	}
	if len(doc.Content) == 0 {
		return fieldError("document", "Document is empty")
	}
	if s.maxBytes > 0 && int64(len(doc.Content)) > s.maxBytes {
		return fieldError("document", "Document must be at most "+humanSize(s.maxBytes))
	}
	if !allowedDocumentExts[strings.ToLower(filepath.Ext(doc.Filename))] {
		return fieldError("document", "Document must be a PDF, Word document or image")
	}
	if detectAllowed(doc.Content) == "" {
		return fieldError("document", "Document content does not match an accepted type")
	}
	return nil
}

// Store uploads doc as documents/<owner>/<uuid>-<slug>.<ext> and returns
// its URL and object key.
func (s *DocumentService) Store(ctx context.Context, ownerID string, doc *models.Document) (url, key string, err error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(doc.Filename), filepath.Ext(doc.Filename)))
	if base == "" {
		base = "document"
	}
	key = fmt.Sprintf("documents/%s/%s-%s%s", ownerID, uuid.NewString(), base, ext)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	url, err = s.blobs.Put(ctx, key, mimetype.Detect(doc.Content).String(), doc.Content)
	if err != nil {
		return "", "", fmt.Errorf("failed to store document %q: %w", doc.Filename, err)
	}
	return url, key, nil
}

// Delete removes a stored document.
func (s *DocumentService) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.blobs.Delete(ctx, key)
}

// detectAllowed returns the first accepted type in the detected type's
// ancestry, or "" when none is accepted.
func detectAllowed(content []byte) string {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if isAllowedDocumentType(m.String()) {
			return m.String()
		}
	}
	return ""
}

func humanSize(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d KB", n>>10)
}

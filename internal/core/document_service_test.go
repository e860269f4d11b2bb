package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/contacts-backend/internal/models"
)

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
}

func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
}

func TestDocumentValidate(t *testing.T) {
	s := NewDocumentService(newMemoryBlobStore(), 1024, time.Second)
	tests := []struct {
		name    string
		doc     *models.Document
		wantErr bool
	}{
		{name: "nil", doc: nil},
		{name: "png", doc: &models.Document{Filename: "photo.PNG", Content: pngBytes()}},
		{name: "pdf", doc: &models.Document{Filename: "id.pdf", Content: pdfBytes()}},
		{name: "empty", doc: &models.Document{Filename: "id.pdf"}, wantErr: true},
		{name: "too large", doc: &models.Document{Filename: "id.pdf", Content: append(pdfBytes(), make([]byte, 2048)...)}, wantErr: true},
		{name: "wrong extension", doc: &models.Document{Filename: "run.exe", Content: pdfBytes()}, wantErr: true},
		{name: "text disguised as pdf", doc: &models.Document{Filename: "notes.pdf", Content: []byte("just some text")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDocumentStoreNamesObjectPerUser(t *testing.T) {
	blobs := newMemoryBlobStore()
	s := NewDocumentService(blobs, 1<<20, time.Second)

	url, key, err := s.Store(context.Background(), "user-42", &models.Document{Filename: "Pièce Identité.PDF", Content: pdfBytes()})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if !strings.HasPrefix(key, "documents/user-42/") || !strings.HasSuffix(key, "-piece-identite.pdf") {
		t.Errorf("key = %q", key)
	}
	if !strings.HasSuffix(url, key) {
		t.Errorf("url = %q, want it to end with key", url)
	}
	if err := s.Delete(context.Background(), key); err != nil || blobs.Len() != 0 {
		t.Errorf("Delete() error = %v, remaining = %d", err, blobs.Len())
	}
}

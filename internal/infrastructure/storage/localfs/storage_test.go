package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func TestSaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "form_file_id.pdf", strings.NewReader("%PDF-1.7")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := storage.Open(ctx, "form_file_id.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "%PDF-1.7" {
		t.Fatalf("unexpected content %q", body)
	}

	if err := storage.Delete(ctx, "form_file_id.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "form_file_id.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
	if err := storage.Delete(ctx, "form_file_id.pdf"); err != nil {
		t.Fatalf("second Delete() should be a no-op, got %v", err)
	}
}

func TestRejectsKeysOutsideBase(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "..", "../escape", `a\b`, "nested/key"} {
		err := storage.Save(context.Background(), key, strings.NewReader("x"))
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}

package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return store
}

func TestSaveAndOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "uploads/7/photo.jpg", strings.NewReader("image-bytes")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := store.Open(ctx, "uploads/7/photo.jpg")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("Expected %q, got %q", "image-bytes", string(data))
	}
}

func TestOpenMissingFile(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Open(context.Background(), "uploads/7/missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPathConfinement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	escapes := []string{
		"../outside.txt",
		"uploads/../../outside.txt",
		"uploads/7/../../../etc/passwd",
	}

	for _, p := range escapes {
		if err := store.Save(ctx, p, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Save(%q): expected ErrInvalidPath, got %v", p, err)
		}
		if _, err := store.Open(ctx, p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Open(%q): expected ErrInvalidPath, got %v", p, err)
		}
		if err := store.Delete(ctx, p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Delete(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestDeleteFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "uploads/3/a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, "uploads/3/a.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "uploads/3/a.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteDir(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png"} {
		if err := store.Save(ctx, "uploads/5/"+name, strings.NewReader("x")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := store.DeleteDir(ctx, "uploads/5"); err != nil {
		t.Fatalf("DeleteDir failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Root(), "uploads", "5")); !os.IsNotExist(err) {
		t.Error("Expected directory to be removed")
	}

	// Deleting the root itself is never allowed.
	if err := store.DeleteDir(ctx, "."); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath deleting root, got %v", err)
	}
}

func TestRemoveDirIfEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "uploads/9/a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Non-empty directory survives.
	if err := store.RemoveDirIfEmpty(ctx, "uploads/9"); err != nil {
		t.Fatalf("RemoveDirIfEmpty failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "uploads", "9")); err != nil {
		t.Error("Expected non-empty directory to survive")
	}

	if err := store.Delete(ctx, "uploads/9/a.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.RemoveDirIfEmpty(ctx, "uploads/9"); err != nil {
		t.Fatalf("RemoveDirIfEmpty failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "uploads", "9")); !os.IsNotExist(err) {
		t.Error("Expected empty directory to be removed")
	}

	// A directory that never existed is not an error.
	if err := store.RemoveDirIfEmpty(ctx, "uploads/404"); err != nil {
		t.Errorf("Expected nil for missing directory, got %v", err)
	}
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	files := []string{"uploads/1/a.png", "uploads/1/b.png", "uploads/2/c.png"}
	for _, p := range files {
		if err := store.Save(ctx, p, strings.NewReader("x")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := store.List(ctx, "uploads")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sort.Strings(got)

	if len(got) != len(files) {
		t.Fatalf("Expected %d files, got %d: %v", len(files), len(got), got)
	}
	for i, want := range files {
		if got[i] != want {
			t.Errorf("Expected %q at index %d, got %q", want, i, got[i])
		}
	}

	scoped, err := store.List(ctx, "uploads/1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scoped) != 2 {
		t.Errorf("Expected 2 files under uploads/1, got %d", len(scoped))
	}
}

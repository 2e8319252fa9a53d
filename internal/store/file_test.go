package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFile_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, err := f.Get(ctx, "theme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.Set(ctx, "theme", []byte(`"light"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := f.Get(ctx, "theme")
	if err != nil || string(got) != `"light"` {
		t.Fatalf("expected stored value, got %q err=%v", got, err)
	}
}

func TestFile_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir, nil)
	_ = f.Set(context.Background(), "chatHistory", []byte(`[]`))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "chatHistory.json" {
		t.Fatalf("unexpected files %v", entries)
	}
}

func TestFile_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir, nil)
	if err := os.WriteFile(filepath.Join(dir, "theme.json"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := f.Get(context.Background(), "theme"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFile_WatchSeesOtherHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	a, _ := NewFile(dir, nil)
	b, _ := NewFile(dir, nil)

	changes, err := a.Watch(ctx, "theme")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := b.Set(ctx, "theme", []byte(`"light"`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	c := recvChange(t, changes)
	if c.Origin != b.ID() || string(c.Value) != `"light"` {
		t.Fatalf("unexpected change %+v", c)
	}

	cancel()
	for range changes {
	}
}

func TestFile_WatchReportsRemoval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	f, _ := NewFile(dir, nil)
	_ = f.Set(ctx, "theme", []byte(`"dark"`))

	changes, _ := f.Watch(ctx, "theme")
	if err := os.Remove(filepath.Join(dir, "theme.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if c := recvChange(t, changes); c.Value != nil {
		t.Fatalf("expected nil value, got %q", c.Value)
	}

	cancel()
	for range changes {
	}
}

func TestPersisted_SyncAcrossFileHandles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()
	a, _ := NewFile(dir, nil)
	b, _ := NewFile(dir, nil)

	pa := NewPersisted(ctx, a, "chatHistory", []string{}, nil)
	pb := NewPersisted(ctx, b, "chatHistory", []string{}, nil)
	done, err := pa.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	pb.Update(ctx, func(log []string) []string { return append(log, "Dune") })
	waitFor(t, "file sync", func() bool {
		got := pa.Get()
		return len(got) == 1 && got[0] == "Dune"
	})

	cancel()
	<-done
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "chatHistory"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_SiblingSharesDataAndSeesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewMemory()
	b := a.Sibling()
	if a.ID() == b.ID() {
		t.Fatalf("siblings must have distinct origins")
	}

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
	got, err := a.Get(ctx, "theme")
	if err != nil || string(got) != `"light"` {
		t.Fatalf("expected shared value, got %q err=%v", got, err)
	}
}

func TestMemory_DeleteNotifiesNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMemory()
	_ = m.Set(ctx, "theme", []byte(`"dark"`))
	changes, _ := m.Sibling().Watch(ctx, "theme")
	if err := m.Delete(ctx, "theme"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c := recvChange(t, changes); c.Value != nil {
		t.Fatalf("expected nil value, got %q", c.Value)
	}
}

func TestMemory_WatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	changes, _ := NewMemory().Watch(ctx, "theme")
	cancel()
	for range changes {
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	_ = m.Close()
	if err := m.Set(context.Background(), "theme", []byte(`"dark"`)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemory_InvalidKey(t *testing.T) {
	if err := NewMemory().Set(context.Background(), "../etc", []byte(`1`)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestMemory_ConcurrentWritersNotifyInStoreOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewMemory()
	b := a.Sibling()
	changes, err := a.Sibling().Watch(ctx, "theme")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	var wg sync.WaitGroup
	for _, h := range []*Memory{a, b} {
		wg.Add(1)
		go func(h *Memory) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = h.Set(ctx, "theme", []byte(fmt.Sprintf(`"%s-%d"`, h.ID(), i)))
			}
		}(h)
	}
	wg.Wait()

	var last Change
	for drained := false; !drained; {
		select {
		case c := <-changes:
			last = c
		default:
			drained = true
		}
	}
	stored, err := a.Get(ctx, "theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(last.Value) != string(stored) {
		t.Fatalf("last notified %s, stored %s", last.Value, stored)
	}
}

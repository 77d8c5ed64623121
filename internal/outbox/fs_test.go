package outbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFSOutbox_RoundTrip(t *testing.T) {
	ctx := context.Background()
	o, err := NewFSOutbox(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	in := Entry{Token: "tok-1", Payload: []byte(`{"answers":[]}`), SavedAt: 1724900000}
	if err := o.Enqueue(ctx, "user-1", in); err != nil {
		t.Fatal(err)
	}

	got, ok, err := o.Peek(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("Peek = (%v, %v), want entry", ok, err)
	}
	if got.Token != in.Token || string(got.Payload) != string(in.Payload) || got.SavedAt != in.SavedAt {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// other owners see nothing
	if _, ok, _ := o.Peek(ctx, "user-2"); ok {
		t.Fatal("peek for a different owner must be empty")
	}
}

func TestFSOutbox_EnqueueOverwrites(t *testing.T) {
	ctx := context.Background()
	o, _ := NewFSOutbox(t.TempDir())

	_ = o.Enqueue(ctx, "u", Entry{Token: "old", Payload: []byte(`1`)})
	_ = o.Enqueue(ctx, "u", Entry{Token: "new", Payload: []byte(`2`)})

	got, ok, err := o.Peek(ctx, "u")
	if err != nil || !ok {
		t.Fatalf("Peek: %v %v", ok, err)
	}
	if got.Token != "new" {
		t.Fatalf("want latest entry, got token %q", got.Token)
	}
}

func TestFSOutbox_AckClears(t *testing.T) {
	ctx := context.Background()
	o, _ := NewFSOutbox(t.TempDir())

	_ = o.Enqueue(ctx, "u", Entry{Token: "tok", Payload: []byte(`{}`)})
	if err := o.Ack(ctx, "u"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := o.Peek(ctx, "u"); ok {
		t.Fatal("entry must be gone after Ack")
	}
	// Ack with nothing queued is a no-op, not an error
	if err := o.Ack(ctx, "u"); err != nil {
		t.Fatalf("second Ack: %v", err)
	}
}

func TestFSOutbox_CorruptEntryClearedOnPeek(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	o, _ := NewFSOutbox(dir)

	path := filepath.Join(dir, "u.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := o.Peek(ctx, "u")
	if err != nil || ok {
		t.Fatalf("corrupt entry: Peek = (%v, %v), want absent with nil error", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt entry must be cleared, not retried")
	}
}

func TestFSOutbox_OwnerNamesAreFilesystemSafe(t *testing.T) {
	ctx := context.Background()
	o, _ := NewFSOutbox(t.TempDir())

	owner := "guest|17abc/../x"
	if err := o.Enqueue(ctx, owner, Entry{Token: "tok", Payload: []byte(`{}`)}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := o.Peek(ctx, owner); err != nil || !ok {
		t.Fatalf("Peek: %v %v", ok, err)
	}
}

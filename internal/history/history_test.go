package history

import (
	"path/filepath"
	"testing"
	"time"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListRecent(t *testing.T) {
	db := setupDB(t)
	now := time.Now().Unix()

	events := []*Event{
		{Type: EventUpload, FileID: "f1", FileName: "a.txt", Size: 10, Peer: "192.168.1.5", At: now - 2},
		{Type: EventDownload, FileID: "f1", FileName: "a.txt", Size: 10, Peer: "192.168.1.9", At: now - 1},
		{Type: EventRemove, FileID: "f1", FileName: "a.txt", Size: 10, At: now},
	}
	for _, e := range events {
		if err := db.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if e.ID == "" {
			t.Error("expected Record to assign an id")
		}
	}

	got, err := db.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].Type != EventRemove {
		t.Errorf("got[0].Type = %q, want %q", got[0].Type, EventRemove)
	}
	if got[1].Peer != "192.168.1.9" {
		t.Errorf("got[1].Peer = %q, want 192.168.1.9", got[1].Peer)
	}
}

func TestListRecentLimit(t *testing.T) {
	db := setupDB(t)
	for i := 0; i < 5; i++ {
		if err := db.Record(&Event{Type: EventUpload, FileID: "f", FileName: "f", At: int64(i)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := db.ListRecent(2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestPrune(t *testing.T) {
	db := setupDB(t)
	now := time.Now().Unix()

	db.Record(&Event{Type: EventUpload, FileID: "old", FileName: "old", At: now - 1000})
	db.Record(&Event{Type: EventUpload, FileID: "new", FileName: "new", At: now})

	n, err := db.Prune(now - 500)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	got, _ := db.ListRecent(10)
	if len(got) != 1 || got[0].FileID != "new" {
		t.Errorf("remaining = %+v, want only the new event", got)
	}
}

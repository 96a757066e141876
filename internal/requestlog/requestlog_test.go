package requestlog

import (
	"path/filepath"
	"testing"
)

func TestLoggerReturnsNewestFirst(t *testing.T) {
	l := New()
	l.Log(Entry{ID: "1"})
	l.Log(Entry{ID: "2"})
	l.Log(Entry{ID: "3"})

	logs := l.Logs()
	if len(logs) != 3 || logs[0].ID != "3" || logs[2].ID != "1" {
		t.Fatalf("expected newest-first order, got %+v", logs)
	}
}

func TestLoggerEvictsOldestAtCapacity(t *testing.T) {
	l := New()
	for i := 0; i < MaxEntries+5; i++ {
		l.Log(Entry{ID: string(rune('a' + i%26))})
	}
	logs := l.Logs()
	if len(logs) != MaxEntries {
		t.Fatalf("expected capped at %d entries, got %d", MaxEntries, len(logs))
	}
}

func TestLogsReturnsIndependentCopy(t *testing.T) {
	l := New()
	l.Log(Entry{ID: "1"})
	logs := l.Logs()
	logs[0].ID = "mutated"

	if fresh := l.Logs(); fresh[0].ID != "1" {
		t.Errorf("expected internal state unaffected by caller mutation, got %s", fresh[0].ID)
	}
}

func TestNewWithPersistenceMirrorsEntriesToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jsonl")
	l, err := NewWithPersistence(path)
	if err != nil {
		t.Fatalf("NewWithPersistence: %v", err)
	}
	l.Log(Entry{ID: "1", Model: "claude-sonnet-4.5", MaxTokens: 512, Stream: true, MessageCount: 2, CredentialID: 7, Success: true})
	l.Log(Entry{ID: "2", Model: "claude-haiku-4.5", MaxTokens: 128, Stream: false, MessageCount: 1, CredentialID: 7, Success: false})

	reloaded, err := NewWithPersistence(path)
	if err != nil {
		t.Fatalf("NewWithPersistence reload: %v", err)
	}
	logs := reloaded.Logs()
	if len(logs) != 2 {
		t.Fatalf("expected 2 rehydrated entries, got %d", len(logs))
	}
	if logs[0].ID != "2" || logs[0].Model != "claude-haiku-4.5" || logs[0].CredentialID != 7 || logs[0].Success {
		t.Errorf("unexpected newest rehydrated entry: %+v", logs[0])
	}
	if logs[1].ID != "1" || !logs[1].Stream || logs[1].MaxTokens != 512 {
		t.Errorf("unexpected oldest rehydrated entry: %+v", logs[1])
	}
}

func TestNewWithPersistenceMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.jsonl")
	l, err := NewWithPersistence(path)
	if err != nil {
		t.Fatalf("NewWithPersistence: %v", err)
	}
	if len(l.Logs()) != 0 {
		t.Fatalf("expected empty log for missing file")
	}
}

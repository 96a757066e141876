// Package requestlog provides the bounded in-memory request log the API
// handlers write to: a fixed-capacity ring of the most recent requests,
// read back newest first. When a persistence path is configured, entries are also
// mirrored to a JSONL file so the ring can be rehydrated across restarts.
package requestlog

import (
	"bufio"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MaxEntries is the maximum number of retained log entries; inserting past
// capacity evicts the oldest entry.
const MaxEntries = 50

// Entry is one logged request. Its JSON field names are camelCase, the same
// names used for each line of the JSONL mirror file.
type Entry struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"` // RFC3339
	Model        string `json:"model"`
	MaxTokens    int    `json:"maxTokens"`
	Stream       bool   `json:"stream"`
	MessageCount int    `json:"messageCount"`
	CredentialID uint64 `json:"credentialId"`
	Success      bool   `json:"success"`
}

// Logger is a thread-safe bounded ring buffer of request log entries,
// optionally mirrored to a JSONL file on disk.
type Logger struct {
	mu   sync.Mutex
	logs []Entry
	path string
}

// New builds an empty Logger with no on-disk mirror.
func New() *Logger {
	return &Logger{logs: make([]Entry, 0, MaxEntries)}
}

// NewWithPersistence builds a Logger that mirrors every Log call to a JSONL
// file at path, one entry per line. If path already holds entries from a
// prior run, the most recent MaxEntries of them seed the in-memory ring.
func NewWithPersistence(path string) (*Logger, error) {
	l := &Logger{logs: make([]Entry, 0, MaxEntries), path: path}
	if path == "" {
		return l, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) > MaxEntries {
		lines = lines[len(lines)-MaxEntries:]
	}
	for _, line := range lines {
		l.logs = append(l.logs, entryFromJSON(line))
	}
	return l, nil
}

// entryFromJSON extracts an Entry from one JSONL line via gjson, tolerating
// missing fields (they read as the zero value).
func entryFromJSON(line string) Entry {
	r := gjson.Parse(line)
	return Entry{
		ID:           r.Get("id").String(),
		Timestamp:    r.Get("timestamp").String(),
		Model:        r.Get("model").String(),
		MaxTokens:    int(r.Get("maxTokens").Int()),
		Stream:       r.Get("stream").Bool(),
		MessageCount: int(r.Get("messageCount").Int()),
		CredentialID: r.Get("credentialId").Uint(),
		Success:      r.Get("success").Bool(),
	}
}

// Log appends entry, evicting the oldest entry first if at capacity, and
// mirrors it to the persistence file if one is configured.
func (l *Logger) Log(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.logs) >= MaxEntries {
		l.logs = l.logs[1:]
	}
	l.logs = append(l.logs, entry)

	if l.path != "" {
		if err := l.appendLine(entry); err != nil {
			// Persistence is best-effort: the in-memory ring stays correct
			// even if the mirror write fails.
			return
		}
	}
}

func (l *Logger) appendLine(entry Entry) error {
	line, err := sjson.Set("{}", "id", entry.ID)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "timestamp", entry.Timestamp)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "model", entry.Model)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "maxTokens", entry.MaxTokens)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "stream", entry.Stream)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "messageCount", entry.MessageCount)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "credentialId", entry.CredentialID)
	if err != nil {
		return err
	}
	line, err = sjson.Set(line, "success", entry.Success)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

// Logs returns a newest-first snapshot copy of the retained entries.
func (l *Logger) Logs() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.logs))
	for i, entry := range l.logs {
		out[len(l.logs)-1-i] = entry
	}
	return out
}

package email

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BackupEntry is one message as stored in the local backup file.
type BackupEntry struct {
	Kind    string            `json:"kind"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Meta    map[string]string `json:"meta,omitempty"`
	SavedAt time.Time         `json:"saved_at"`
}

// Summary describes the backup file contents.
type Summary struct {
	Count       int        `json:"count"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
}

// Backup is an append-only JSON array of messages on local disk. Every
// message is written here before any delivery attempt.
type Backup struct {
	path string
	mu   sync.Mutex
}

// NewBackup returns a backup stored at path. The parent directory is created
// on first write.
func NewBackup(path string) *Backup {
	return &Backup{path: path}
}

// Path returns the backing file.
func (b *Backup) Path() string { return b.path }

// Append adds an entry to the file.
func (b *Backup) Append(entry BackupEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.readLocked()
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode email backup: %w", err)
	}
	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write email backup: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace email backup: %w", err)
	}
	return nil
}

// Entries returns every stored message, oldest first. A missing or corrupt
// file reads as empty.
func (b *Backup) Entries() []BackupEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLocked()
}

// Summary returns the entry count and the newest save time.
func (b *Backup) Summary() Summary {
	entries := b.Entries()
	s := Summary{Count: len(entries)}
	for i := range entries {
		t := entries[i].SavedAt
		if s.LastSavedAt == nil || t.After(*s.LastSavedAt) {
			s.LastSavedAt = &t
		}
	}
	return s
}

func (b *Backup) readLocked() []BackupEntry {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil
	}
	var entries []BackupEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

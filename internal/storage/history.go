package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deltaLens/internal/model"
)

// JsonlHistory appends every accepted snapshot to a JSONL file.
type JsonlHistory struct {
	path string
	mu   sync.Mutex
}

func NewJsonlHistory(path string) *JsonlHistory {
	return &JsonlHistory{path: path}
}

// Append writes snapshot as one JSON line.
func (h *JsonlHistory) Append(snapshot model.PoolSnapshot) error {
	dir := filepath.Dir(h.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}
	return nil
}

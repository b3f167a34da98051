package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/picloud/picloud/pkg/domain"
)

// Journal implements ports.Journal as one JSON-lines file per stream.
type Journal struct {
	BasePath string

	mu sync.Mutex
}

// NewJournal creates a Journal below basePath, "data/journal" when empty.
func NewJournal(basePath string) *Journal {
	if basePath == "" {
		basePath = filepath.Join("data", "journal")
	}
	return &Journal{BasePath: basePath}
}

func (j *Journal) path(stream string) string {
	return filepath.Join(j.BasePath, stream+".jsonl")
}

// Append writes sig as one line at the end of the stream file.
func (j *Journal) Append(ctx context.Context, stream string, sig domain.Signal) error {
	if stream == "" {
		return errEmptyName
	}
	line, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path(stream), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to journal: %w", err)
	}
	return f.Close()
}

// Read returns the stream in append order.
func (j *Journal) Read(ctx context.Context, stream string) ([]domain.Signal, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path(stream))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Signal{}, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	sigs := []domain.Signal{}
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var sig domain.Signal
		if err := json.Unmarshal(scanner.Bytes(), &sig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal at line %d: %w", n, err)
		}
		sigs = append(sigs, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return sigs, nil
}

// Truncate removes the stream file.
func (j *Journal) Truncate(ctx context.Context, stream string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(j.path(stream)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}
	return nil
}

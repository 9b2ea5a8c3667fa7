package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/timeutil"
)

// FileStore is the filesystem-backed posts store: the full post list lives
// as a JSON array in a single file. It exists as an alternate persistence
// mode for deployments that cannot host the key-value store; functionally
// it mirrors KVStore.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewFileStore creates a JSON-file-backed posts store at path, creating the
// parent directory if needed.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create posts file dir: %w", err)
		}
	}
	return &FileStore{path: path, logger: logger}, nil
}

// load reads the current list. A missing file is an empty list.
func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, err
	}
	var list []Record
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return list, nil
}

func (s *FileStore) save(list []Record) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// nextID returns one past the highest numeric id in the list.
func nextID(list []Record) string {
	var max int64
	for _, rec := range list {
		if n, err := strconv.ParseInt(rec.ID, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10)
}

// Create appends a new post to the file.
func (s *FileStore) Create(ctx context.Context, in Input) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return Record{}, err
	}
	now := timeutil.Now()
	rec := Record{
		ID:          nextID(list),
		Title:       in.Title,
		SubTitle:    in.SubTitle,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ImagePath:   in.ImagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	list = append(list, rec)
	if err := s.save(list); err != nil {
		return Record{}, err
	}
	s.logger.Info("post stored in file backend", zap.String("id", rec.ID), zap.String("path", s.path))
	return rec, nil
}

// Get returns the post, or nil when absent.
func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range list {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, nil
}

// Update merges provided fields over the stored record, or returns nil when
// the post does not exist.
func (s *FileStore) Update(ctx context.Context, id string, upd Update) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	for i, rec := range list {
		if rec.ID != id {
			continue
		}
		next := rec.applied(upd)
		next.UpdatedAt = timeutil.Now()
		list[i] = next
		if err := s.save(list); err != nil {
			return nil, err
		}
		return &next, nil
	}
	return nil, nil
}

// Delete removes the post and returns the deleted record, or nil when absent.
func (s *FileStore) Delete(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	for i, rec := range list {
		if rec.ID != id {
			continue
		}
		removed := rec
		list = append(list[:i], list[i+1:]...)
		if err := s.save(list); err != nil {
			return nil, err
		}
		return &removed, nil
	}
	return nil, nil
}

// ListSummary returns all posts reduced to listing shape, newest first.
func (s *FileStore) ListSummary(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.summary())
	}
	sortSummaries(out)
	return out, nil
}

package posts

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/timeutil"
)

const (
	postPrefix = "post:"
	seqName    = "posts"
)

// KVStore persists posts in the shared key-value store under "post:<id>",
// with ids drawn from the durable "posts" sequence.
type KVStore struct {
	db     *kvstore.Store
	seq    *kvstore.Sequence
	logger *zap.Logger
}

// NewKVStore creates the badger-backed posts store.
func NewKVStore(db *kvstore.Store, seq *kvstore.Sequence, logger *zap.Logger) *KVStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVStore{db: db, seq: seq, logger: logger}
}

func postKey(id string) string {
	return postPrefix + id
}

// Create assigns a sequence id and stores the post. A failed write after the
// sequence increment leaves a permanent id gap, which is acceptable.
func (s *KVStore) Create(ctx context.Context, in Input) (Record, error) {
	idNum, err := s.seq.Next(seqName)
	if err != nil {
		return Record{}, err
	}
	now := timeutil.Now()
	rec := Record{
		ID:          strconv.FormatInt(idNum, 10),
		Title:       in.Title,
		SubTitle:    in.SubTitle,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ImagePath:   in.ImagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Put(postKey(rec.ID), rec); err != nil {
		s.logger.Error("failed to store post", zap.String("id", rec.ID), zap.Error(err))
		return Record{}, err
	}
	s.logger.Info("post created", zap.String("id", rec.ID), zap.String("title", rec.Title))
	return rec, nil
}

// Get returns the post, or nil when it does not exist.
func (s *KVStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := s.db.Get(postKey(id), &rec); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Update merges the provided fields over the stored record and bumps
// updatedAt. Returns nil when the post does not exist.
func (s *KVStore) Update(ctx context.Context, id string, upd Update) (*Record, error) {
	var next Record
	found := false
	err := s.db.Update(func(tx *kvstore.Tx) error {
		var existing Record
		if err := tx.Get(postKey(id), &existing); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		next = existing.applied(upd)
		next.UpdatedAt = timeutil.Now()
		found = true
		return tx.Put(postKey(id), next)
	})
	if err != nil {
		s.logger.Error("update post failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.logger.Info("post updated", zap.String("id", id))
	return &next, nil
}

// Delete removes the post and returns the deleted record so the caller can
// clean up any uploaded image. Returns nil when the post does not exist.
func (s *KVStore) Delete(ctx context.Context, id string) (*Record, error) {
	var removed Record
	found := false
	err := s.db.Update(func(tx *kvstore.Tx) error {
		if err := tx.Get(postKey(id), &removed); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		return tx.Delete(postKey(id))
	})
	if err != nil {
		s.logger.Error("delete post failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.logger.Warn("post deleted", zap.String("id", id))
	return &removed, nil
}

// ListSummary returns all posts reduced to listing shape, newest first.
func (s *KVStore) ListSummary(ctx context.Context) ([]Summary, error) {
	list := []Summary{}
	err := s.db.Scan(postPrefix, func(key string, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		list = append(list, rec.summary())
		return nil
	})
	if err != nil {
		s.logger.Error("list posts failed", zap.Error(err))
		return nil, err
	}
	sortSummaries(list)
	return list, nil
}

package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kvstore: key not found")

// maxTxnRetries bounds retries of Update transactions that lose a
// serializable-snapshot conflict to a concurrent writer.
const maxTxnRetries = 10

// Store is an ordered, prefix-scannable key-value store backed by badger.
// Values are JSON-encoded records keyed by string.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) a store at dir. An empty dir opens an in-memory
// store, which is what the tests use.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").
			WithInMemory(true)
	} else {
		if _, err := os.Stat(dir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read data dir: %w", err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(newBadgerLogger(logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	logger.Info("kvstore opened", zap.String("dir", dir), zap.Bool("inMemory", dir == ""))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx exposes key-value operations within a single transaction.
type Tx struct {
	txn *badger.Txn
}

// Put stores value under key, JSON-encoded.
func (t *Tx) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return t.txn.Set([]byte(key), data)
}

// GetRaw returns the raw bytes stored under key, or ErrNotFound.
func (t *Tx) GetRaw(key string) ([]byte, error) {
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Get decodes the value stored under key into out, or returns ErrNotFound.
func (t *Tx) Get(key string, out any) error {
	data, err := t.GetRaw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// Delete removes key, returning ErrNotFound when it does not exist.
func (t *Tx) Delete(key string) error {
	if _, err := t.txn.Get([]byte(key)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return t.txn.Delete([]byte(key))
}

// Update runs fn in a read-write transaction. Multi-key mutations inside fn
// commit atomically. Conflicting commits are retried a bounded number of
// times before the conflict error is returned to the caller.
func (s *Store) Update(fn func(*Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&Tx{txn: txn})
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxTxnRetries {
			s.logger.Debug("kvstore txn conflict, retrying", zap.Int("attempt", attempt+1))
			time.Sleep(time.Duration(attempt+1) * time.Millisecond)
			continue
		}
		return err
	}
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Put stores a single value under key.
func (s *Store) Put(key string, value any) error {
	return s.Update(func(tx *Tx) error {
		return tx.Put(key, value)
	})
}

// Get decodes the value stored under key into out, or returns ErrNotFound.
func (s *Store) Get(key string, out any) error {
	return s.View(func(tx *Tx) error {
		return tx.Get(key, out)
	})
}

// Delete removes a single key, returning ErrNotFound when absent.
func (s *Store) Delete(key string) error {
	return s.Update(func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// Scan visits every key starting with prefix in lexicographic key order,
// passing the key and raw value bytes to fn. A non-nil error from fn stops
// the scan and is returned. Each call opens a fresh iterator.
func (s *Store) Scan(prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.KeyCopy(nil)), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunGC runs one round of value-log garbage collection. A round that found
// nothing to rewrite is not an error. Only meaningful on disk-backed stores.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Size reports the on-disk size of the LSM tree and the value log in bytes.
func (s *Store) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Verify performs a put/get/delete round-trip on a throwaway key. It is
// called once at startup; a failure means the store is unusable and the
// process should not serve traffic.
func (s *Store) Verify() error {
	key := fmt.Sprintf("__ping__:%d", time.Now().UnixNano())
	value := map[string]bool{"ok": true}

	if err := s.Put(key, value); err != nil {
		return fmt.Errorf("verify put: %w", err)
	}
	var got map[string]bool
	if err := s.Get(key, &got); err != nil {
		return fmt.Errorf("verify get: %w", err)
	}
	if !got["ok"] {
		return errors.New("verify: echo mismatch")
	}
	if err := s.Delete(key); err != nil {
		return fmt.Errorf("verify delete: %w", err)
	}
	s.logger.Info("kvstore verified")
	return nil
}

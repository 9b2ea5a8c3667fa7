package kvstore

import (
	"bytes"
	"errors"
	"strconv"

	"go.uber.org/zap"
)

const seqPrefix = "seq:"

// Sequence issues monotonically increasing integer IDs per named counter,
// persisted in the store under "seq:<name>". The first value for a fresh
// counter is 1. Allocation is atomic, so a crash mid-operation can at most
// lose an allocated value, never hand the same one out twice.
type Sequence struct {
	store  *Store
	logger *zap.Logger
}

// NewSequence creates a sequence generator over store.
func NewSequence(store *Store, logger *zap.Logger) *Sequence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequence{store: store, logger: logger}
}

// Next increments the named counter and returns the new value. A corrupt
// (non-numeric) stored value is reset to 0 and counting continues; that
// favors availability over strict continuity and is logged, not fatal.
func (s *Sequence) Next(name string) (int64, error) {
	key := seqPrefix + name
	var next int64
	err := s.store.Update(func(tx *Tx) error {
		var cur int64
		raw, err := tx.GetRaw(key)
		switch {
		case errors.Is(err, ErrNotFound):
			cur = 0
		case err != nil:
			return err
		default:
			cur, err = parseCounter(raw)
			if err != nil {
				s.logger.Warn("sequence corrupt value, resetting to 0",
					zap.String("name", name),
					zap.ByteString("value", raw),
				)
				cur = 0
			}
		}
		next = cur + 1
		return tx.Put(key, next)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("sequence increment", zap.String("name", name), zap.Int64("value", next))
	return next, nil
}

// parseCounter reads a stored counter value. Values are written as JSON
// numbers, but quoted numeric strings from older records parse too.
func parseCounter(raw []byte) (int64, error) {
	trimmed := bytes.Trim(bytes.TrimSpace(raw), `"`)
	return strconv.ParseInt(string(trimmed), 10, 64)
}

package txns

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/timeutil"
)

// ErrDuplicate is returned when a transaction with the same txnId has
// already been recorded.
var ErrDuplicate = errors.New("transaction already recorded")

const (
	txnPrefix        = "txn:"
	txnIDIndexPrefix = "txnByTxnId:" // txnByTxnId:<txnId> -> id
	seqName          = "txns"
)

// Record is one entry in the append-only donation ledger. There is no
// update or delete operation.
type Record struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Number    string  `json:"number"`
	TxnID     string  `json:"txnId"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"createdAt"`
}

// Input holds the fields accepted when recording a donation.
type Input struct {
	Name   string
	Number string
	TxnID  string
	Amount float64
}

// Filter selects transactions matching all provided fields. Name matching is
// case-insensitive; number and txnId are exact.
type Filter struct {
	Name   string
	Number string
	TxnID  string
}

// Service is the donation ledger over the key-value store.
type Service struct {
	db     *kvstore.Store
	seq    *kvstore.Sequence
	logger *zap.Logger
}

// New creates the transaction service.
func New(db *kvstore.Store, seq *kvstore.Sequence, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, seq: seq, logger: logger}
}

func txnKey(id string) string {
	return txnPrefix + id
}

func txnIDIndexKey(txnID string) string {
	return txnIDIndexPrefix + txnID
}

// Create records a donation, enforcing txnId uniqueness through the
// secondary index. The existence check, the record write and the index
// write run in a single store transaction, so two concurrent submissions
// of the same txnId cannot both be admitted.
func (s *Service) Create(ctx context.Context, in Input) (Record, error) {
	idNum, err := s.seq.Next(seqName)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:        strconv.FormatInt(idNum, 10),
		Name:      in.Name,
		Number:    in.Number,
		TxnID:     in.TxnID,
		Amount:    in.Amount,
		CreatedAt: timeutil.Now(),
	}

	err = s.db.Update(func(tx *kvstore.Tx) error {
		_, err := tx.GetRaw(txnIDIndexKey(in.TxnID))
		if err == nil {
			return ErrDuplicate
		}
		if !errors.Is(err, kvstore.ErrNotFound) {
			return err
		}
		if err := tx.Put(txnKey(rec.ID), rec); err != nil {
			return err
		}
		return tx.Put(txnIDIndexKey(in.TxnID), rec.ID)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			s.logger.Warn("txn duplicate by txnId", zap.String("txnId", in.TxnID))
		} else {
			s.logger.Error("failed to store txn", zap.Error(err))
		}
		return Record{}, err
	}

	s.logger.Info("txn stored", zap.String("id", rec.ID), zap.Float64("amount", rec.Amount))
	return rec, nil
}

// List returns all transactions, newest first.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	list := []Record{}
	err := s.db.Scan(txnPrefix, func(key string, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		list = append(list, rec)
		return nil
	})
	if err != nil {
		s.logger.Error("list txns failed", zap.Error(err))
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list, nil
}

// FilterList returns transactions matching all provided filter fields.
// Implemented as a full scan; fine at the volumes this service sees.
func (s *Service) FilterList(ctx context.Context, f Filter) ([]Record, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, rec := range all {
		if f.Name != "" && !strings.EqualFold(rec.Name, f.Name) {
			continue
		}
		if f.Number != "" && rec.Number != f.Number {
			continue
		}
		if f.TxnID != "" && rec.TxnID != f.TxnID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// TotalAmount sums all recorded amounts. Recomputed from a full scan each
// call rather than maintained as a running total, so it is always consistent
// with the latest writes.
func (s *Service) TotalAmount(ctx context.Context) (float64, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, rec := range all {
		if math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0) {
			continue
		}
		sum += rec.Amount
	}
	return sum, nil
}

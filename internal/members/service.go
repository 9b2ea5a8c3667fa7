package members

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/timeutil"
)

// ErrAlreadyDecided is returned in strict mode when approve/reject targets
// a request that is no longer pending.
var ErrAlreadyDecided = errors.New("member request already decided")

const (
	requestPrefix  = "member-req:"
	officialPrefix = "official-member:"
)

// Service manages the two-stage membership lifecycle: public applications
// become pending requests, and approval promotes a request into an official
// member record under a separate key namespace.
type Service struct {
	db     *kvstore.Store
	logger *zap.Logger

	// strict rejects approve/reject on non-pending requests. The permissive
	// default keeps the historical behavior: re-approving overwrites the
	// official record, re-rejecting is a no-op.
	strict bool
}

// New creates the membership service. strict toggles the transition guard.
func New(db *kvstore.Store, strict bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, strict: strict, logger: logger}
}

func requestKey(id string) string {
	return requestPrefix + id
}

func officialKey(id string) string {
	return officialPrefix + id
}

// CreateRequest stores a new application in pending state.
func (s *Service) CreateRequest(ctx context.Context, in Input) (Request, error) {
	now := timeutil.Now()
	req := Request{
		ID:                        NewID(),
		Name:                      in.Name,
		FathersName:               in.FathersName,
		MothersName:               in.MothersName,
		Region:                    in.Region,
		Institution:               in.Institution,
		Address:                   in.Address,
		Email:                     in.Email,
		WhyJoining:                in.WhyJoining,
		HowDidYouFindUs:           in.HowDidYouFindUs,
		Hobbies:                   in.Hobbies,
		ParticularSkill:           in.ParticularSkill,
		ExtraCurricularActivities: in.ExtraCurricularActivities,
		Photo:                     in.Photo,
		PhoneNumber:               in.PhoneNumber,
		Status:                    StatusPending,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.db.Put(requestKey(req.ID), req); err != nil {
		s.logger.Error("failed to store member request", zap.Error(err))
		return Request{}, err
	}
	s.logger.Info("member request created", zap.String("id", req.ID))
	return req, nil
}

// GetRequest returns the request, or nil when absent.
func (s *Service) GetRequest(ctx context.Context, id string) (*Request, error) {
	var req Request
	if err := s.db.Get(requestKey(id), &req); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// ListRequests returns applications newest first, optionally filtered by
// status (empty status means all).
func (s *Service) ListRequests(ctx context.Context, status Status) ([]Request, error) {
	list := []Request{}
	err := s.db.Scan(requestPrefix, func(key string, value []byte) error {
		var req Request
		if err := json.Unmarshal(value, &req); err != nil {
			return err
		}
		if status != "" && req.Status != status {
			return nil
		}
		list = append(list, req)
		return nil
	})
	if err != nil {
		s.logger.Error("list member requests failed", zap.Error(err))
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list, nil
}

// Manage applies an approve or reject decision. Approval writes the official
// member record and the request's new status in one store transaction, so a
// crash cannot leave an official member with a still-pending request.
// Returns false when the request does not exist.
func (s *Service) Manage(ctx context.Context, id string, action Action, designation string) (bool, error) {
	found := false
	err := s.db.Update(func(tx *kvstore.Tx) error {
		var req Request
		if err := tx.Get(requestKey(id), &req); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		found = true

		if s.strict && req.Status != StatusPending {
			return ErrAlreadyDecided
		}

		now := timeutil.Now()
		if action == ActionApprove {
			if err := tx.Put(officialKey(id), official(req, designation, now)); err != nil {
				return err
			}
			req.Status = StatusApproved
		} else {
			req.Status = StatusRejected
		}
		req.UpdatedAt = now
		return tx.Put(requestKey(id), req)
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyDecided) {
			s.logger.Error("manage member request failed", zap.String("id", id), zap.Error(err))
		}
		return found, err
	}
	if found {
		s.logger.Info("member request decided",
			zap.String("id", id),
			zap.String("action", string(action)),
		)
	}
	return found, nil
}

// GetOfficial returns the official member, or nil when absent.
func (s *Service) GetOfficial(ctx context.Context, id string) (*Official, error) {
	var member Official
	if err := s.db.Get(officialKey(id), &member); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListOfficial returns all official members, newest first by createdAt.
func (s *Service) ListOfficial(ctx context.Context) ([]Official, error) {
	list := []Official{}
	err := s.db.Scan(officialPrefix, func(key string, value []byte) error {
		var member Official
		if err := json.Unmarshal(value, &member); err != nil {
			return err
		}
		list = append(list, member)
		return nil
	})
	if err != nil {
		s.logger.Error("list official members failed", zap.Error(err))
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list, nil
}

// SetPinned sets the pinned flag on an official member. Setting a state the
// member is already in is a no-op success. Returns nil when absent.
func (s *Service) SetPinned(ctx context.Context, id string, pinned bool) (*Official, error) {
	var member Official
	found := false
	err := s.db.Update(func(tx *kvstore.Tx) error {
		if err := tx.Get(officialKey(id), &member); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		member.IsPinned = pinned
		member.UpdatedAt = timeutil.Now()
		return tx.Put(officialKey(id), member)
	})
	if err != nil {
		s.logger.Error("set pinned failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.logger.Info("member pin updated", zap.String("id", id), zap.Bool("pinned", pinned))
	return &member, nil
}

// ListPinned returns official members flagged for featured display. A full
// scan filter, not an indexed lookup; fine at expected scale.
func (s *Service) ListPinned(ctx context.Context) ([]Official, error) {
	all, err := s.ListOfficial(ctx)
	if err != nil {
		return nil, err
	}
	out := []Official{}
	for _, member := range all {
		if member.IsPinned {
			out = append(out, member)
		}
	}
	return out, nil
}

// DeleteOfficial removes an official member and returns the deleted record,
// or nil when absent. The originating request is untouched and keeps its
// approved status.
func (s *Service) DeleteOfficial(ctx context.Context, id string) (*Official, error) {
	var removed Official
	found := false
	err := s.db.Update(func(tx *kvstore.Tx) error {
		if err := tx.Get(officialKey(id), &removed); err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		found = true
		return tx.Delete(officialKey(id))
	})
	if err != nil {
		s.logger.Error("delete member failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, nil
	}
	s.logger.Info("official member deleted", zap.String("id", id))
	return &removed, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-program-import/internal/model"
	"github.com/iliyamo/cinema-program-import/internal/repository"
)

// ReviewStore is the slice of the conflict repository the reviewer needs.
type ReviewStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ConflictMovie, error)
	Transition(ctx context.Context, id uint64, from []string, to string, matchedMovieID *uint64) error
	UpdateSessionDate(ctx context.Context, conflictID, sessionID uint64, date, startsAt time.Time) error
}

// ReviewService applies reviewer decisions to staged conflicts.  Only two
// decisions exist: verify and reject, both from to_verify.  The processed
// state is owned by the materializer and cannot be reached through here.
type ReviewService struct {
	conflicts ReviewStore
}

func NewReviewService(conflicts ReviewStore) *ReviewService {
	return &ReviewService{conflicts: conflicts}
}

// Decide moves conflict id into the given state.  matchedMovieID, when
// non-nil, records which catalog movie the reviewer picked; it is only
// meaningful together with a verify decision.
func (s *ReviewService) Decide(ctx context.Context, id uint64, to string, matchedMovieID *uint64) (*model.ConflictMovie, error) {
	switch to {
	case model.StateVerified, model.StateRejected:
	default:
		return nil, fmt.Errorf("%w: cannot move a conflict to %q by review", repository.ErrInvalidTransition, to)
	}
	if to == model.StateRejected && matchedMovieID != nil {
		return nil, fmt.Errorf("%w: a rejected conflict cannot carry a matched movie", repository.ErrInvalidTransition)
	}
	err := s.conflicts.Transition(ctx, id, []string{model.StateToVerify}, to, matchedMovieID)
	if err != nil {
		return nil, err
	}
	return s.conflicts.GetByID(ctx, id)
}

// FixSessionDate lets a reviewer resolve a staged session whose weekday fell
// outside the sheet's date range.  The owning conflict must still be live.
func (s *ReviewService) FixSessionDate(ctx context.Context, conflictID, sessionID uint64, date, startsAt time.Time) error {
	cm, err := s.conflicts.GetByID(ctx, conflictID)
	if err != nil {
		return err
	}
	switch cm.State {
	case model.StateToVerify, model.StateVerified:
	default:
		return fmt.Errorf("%w: conflict %d is %s", repository.ErrInvalidTransition, conflictID, cm.State)
	}
	return s.conflicts.UpdateSessionDate(ctx, conflictID, sessionID, date, startsAt)
}

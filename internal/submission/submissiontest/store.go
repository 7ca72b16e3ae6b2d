// Package submissiontest provides in-memory test doubles for the submission
// engine: a Repository fake whose transactions are serializable (so races
// between concurrent ApplyAction calls behave like row-locked postgres
// transactions) and a permission oracle fake.
package submissiontest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

type storedSubmission struct {
	sub model.Submission
	seq int64
}

// Store is an in-memory submission.Repository. Transactions take an
// exclusive lock for their whole duration and roll state back on error,
// mirroring the engine's locked read-modify-write unit of work. Methods
// suffixed InTx must only be called inside a Transaction callback.
type Store struct {
	mu      sync.Mutex
	seq     int64
	subs    map[uuid.UUID]*storedSubmission
	stages  map[uuid.UUID][]model.SubmissionStage
	actions map[uuid.UUID][]model.SubmissionAction
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		subs:    make(map[uuid.UUID]*storedSubmission),
		stages:  make(map[uuid.UUID][]model.SubmissionStage),
		actions: make(map[uuid.UUID][]model.SubmissionAction),
	}
}

var _ submission.Repository = (*Store)(nil)

func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(nil); err != nil {
		s.subs = snapshot.subs
		s.stages = snapshot.stages
		s.actions = snapshot.actions
		s.seq = snapshot.seq
		return err
	}
	return nil
}

func (s *Store) CreateSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error {
	s.stamp(&sub.BaseModel)
	s.seq++
	s.subs[sub.ID] = &storedSubmission{sub: *sub, seq: s.seq}
	return nil
}

func (s *Store) GetSubmissionForUpdateInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Submission, error) {
	stored, ok := s.subs[id]
	if !ok {
		return nil, submission.ErrNotFound
	}
	sub := stored.sub
	return &sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetSubmissionForUpdateInTx(ctx, nil, id)
}

func (s *Store) SaveSubmissionInTx(ctx context.Context, tx *gorm.DB, sub *model.Submission) error {
	stored, ok := s.subs[sub.ID]
	if !ok {
		return submission.ErrNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	stored.sub = *sub
	return nil
}

func (s *Store) CreateStagesInTx(ctx context.Context, tx *gorm.DB, stages []model.SubmissionStage) error {
	for i := range stages {
		s.stamp(&stages[i].BaseModel)
		s.stages[stages[i].SubmissionID] = append(s.stages[stages[i].SubmissionID], stages[i])
	}
	return nil
}

func (s *Store) GetStagesInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionStage, error) {
	stages := make([]model.SubmissionStage, len(s.stages[submissionID]))
	copy(stages, s.stages[submissionID])
	sort.Slice(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
	return stages, nil
}

func (s *Store) GetStages(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetStagesInTx(ctx, nil, submissionID)
}

func (s *Store) SaveStageInTx(ctx context.Context, tx *gorm.DB, stage *model.SubmissionStage) error {
	stages := s.stages[stage.SubmissionID]
	for i := range stages {
		if stages[i].ID == stage.ID {
			stage.UpdatedAt = time.Now().UTC()
			stages[i] = *stage
			return nil
		}
	}
	return submission.ErrNotFound
}

func (s *Store) AppendActionInTx(ctx context.Context, tx *gorm.DB, action *model.SubmissionAction) error {
	s.stamp(&action.BaseModel)
	s.actions[action.SubmissionID] = append(s.actions[action.SubmissionID], *action)
	return nil
}

func (s *Store) GetActionsInTx(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]model.SubmissionAction, error) {
	actions := make([]model.SubmissionAction, len(s.actions[submissionID]))
	copy(actions, s.actions[submissionID])
	return actions, nil
}

func (s *Store) GetActions(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetActionsInTx(ctx, nil, submissionID)
}

func (s *Store) ListByCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*storedSubmission, 0)
	for _, stored := range s.subs {
		if stored.sub.CreatedByID != nil && *stored.sub.CreatedByID == creatorID {
			matches = append(matches, stored)
		}
	}
	return page(matches, offset, limit), nil
}

func (s *Store) ListPendingForActor(ctx context.Context, actorID uuid.UUID, permissions []string, offset, limit int) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	permSet := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		permSet[p] = struct{}{}
	}

	matches := make([]*storedSubmission, 0)
	for _, stored := range s.subs {
		if stored.sub.Status != model.SubmissionStatusPending {
			continue
		}
		for _, stage := range s.stages[stored.sub.ID] {
			if stage.Order != stored.sub.CurrentStage {
				continue
			}
			if submission.IsAuthorized(&stage, actorID, permSet) {
				matches = append(matches, stored)
			}
			break
		}
	}
	return page(matches, offset, limit), nil
}

func (s *Store) stamp(base *model.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now().UTC()
	base.CreatedAt = now
	base.UpdatedAt = now
}

func (s *Store) clone() *Store {
	snapshot := &Store{
		seq:     s.seq,
		subs:    make(map[uuid.UUID]*storedSubmission, len(s.subs)),
		stages:  make(map[uuid.UUID][]model.SubmissionStage, len(s.stages)),
		actions: make(map[uuid.UUID][]model.SubmissionAction, len(s.actions)),
	}
	for id, stored := range s.subs {
		copied := *stored
		snapshot.subs[id] = &copied
	}
	for id, stages := range s.stages {
		snapshot.stages[id] = append([]model.SubmissionStage(nil), stages...)
	}
	for id, actions := range s.actions {
		snapshot.actions[id] = append([]model.SubmissionAction(nil), actions...)
	}
	return snapshot
}

func page(matches []*storedSubmission, offset, limit int) []model.Submission {
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })

	out := make([]model.Submission, 0, limit)
	for i := offset; i < len(matches) && len(out) < limit; i++ {
		out = append(out, matches[i].sub)
	}
	return out
}

package cases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCaseDesk/casedesk/internal/cases"
	"github.com/OpenCaseDesk/casedesk/internal/submission"
)

func TestGetOrCreateFromSubmissionIsIdempotent(t *testing.T) {
	repo := newFakeCaseRepo()
	svc := cases.NewCaseService(repo)
	ctx := context.Background()

	subID := uuid.New()
	objID := uuid.New()
	draft := func() *cases.Case {
		return &cases.Case{
			Title:              "warehouse fire",
			SourceSubmissionID: subID,
			SourceObjectID:     objID,
		}
	}

	first, err := svc.GetOrCreateFromSubmissionInTx(ctx, nil, draft())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.CaseNumber, "C-"))
	assert.Equal(t, cases.CaseStatusOpen, first.Status)
	assert.Equal(t, "UNCLASSIFIED", first.CrimeLevel)

	second, err := svc.GetOrCreateFromSubmissionInTx(ctx, nil, draft())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.allCases(), 1)
}

func TestGetOrCreateFromSubmissionRejectsConflictingLink(t *testing.T) {
	repo := newFakeCaseRepo()
	svc := cases.NewCaseService(repo)
	ctx := context.Background()

	subID := uuid.New()
	_, err := svc.GetOrCreateFromSubmissionInTx(ctx, nil, &cases.Case{
		Title:              "warehouse fire",
		SourceSubmissionID: subID,
		SourceObjectID:     uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.GetOrCreateFromSubmissionInTx(ctx, nil, &cases.Case{
		Title:              "a different report",
		SourceSubmissionID: subID,
		SourceObjectID:     uuid.New(),
	})
	assert.True(t, errors.Is(err, submission.ErrConflictingLink))
	assert.Len(t, repo.allCases(), 1)
}

func TestAssignLeadDetective(t *testing.T) {
	repo := newFakeCaseRepo()
	svc := cases.NewCaseService(repo)
	ctx := context.Background()

	opened, err := svc.GetOrCreateFromSubmissionInTx(ctx, nil, &cases.Case{
		Title:              "warehouse fire",
		SourceSubmissionID: uuid.New(),
		SourceObjectID:     uuid.New(),
	})
	require.NoError(t, err)

	detective := uuid.New()
	require.NoError(t, svc.AssignLeadDetectiveInTx(ctx, nil, opened.ID, detective))

	got, err := svc.GetCase(ctx, opened.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LeadDetectiveID)
	assert.Equal(t, detective, *got.LeadDetectiveID)

	err = svc.AssignLeadDetectiveInTx(ctx, nil, uuid.New(), detective)
	assert.True(t, errors.Is(err, cases.ErrCaseNotFound))
}

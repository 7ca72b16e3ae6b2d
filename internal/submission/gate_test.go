package submission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

func TestIsAuthorized(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	perm := "cases.first_complaint_review"

	userStage := &model.SubmissionStage{TargetUserID: &owner}
	permStage := &model.SubmissionStage{TargetPermission: &perm}
	bothStage := &model.SubmissionStage{TargetUserID: &owner, TargetPermission: &perm}

	withPerm := map[string]struct{}{perm: {}}
	noPerms := map[string]struct{}{}

	tests := []struct {
		name  string
		stage *model.SubmissionStage
		actor uuid.UUID
		perms map[string]struct{}
		want  bool
	}{
		{"targeted user matches", userStage, owner, noPerms, true},
		{"targeted user mismatch", userStage, other, withPerm, false},
		{"permission member", permStage, other, withPerm, true},
		{"permission non-member", permStage, other, noPerms, false},
		{"user target wins over permission", bothStage, owner, noPerms, true},
		{"user target excludes permission holders", bothStage, other, withPerm, false},
		{"nil stage", nil, owner, withPerm, false},
		{"nil actor", userStage, uuid.Nil, withPerm, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.stage, tt.actor, tt.perms))
		})
	}
}

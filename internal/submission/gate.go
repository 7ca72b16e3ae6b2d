package submission

import (
	"github.com/google/uuid"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// IsAuthorized decides whether an actor may act on a stage. A stage that
// targets a specific user admits that user and nobody else; the permission
// check applies only to stages without a target user. Pure function over the
// actor's permission set; it mutates nothing and is used both to gate
// actions and to answer "what can I see" queries.
func IsAuthorized(stage *model.SubmissionStage, actorID uuid.UUID, perms map[string]struct{}) bool {
	if stage == nil || actorID == uuid.Nil {
		return false
	}
	if stage.TargetUserID != nil {
		return *stage.TargetUserID == actorID
	}
	if stage.TargetPermission != nil {
		_, ok := perms[*stage.TargetPermission]
		return ok
	}
	return false
}

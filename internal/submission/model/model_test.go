package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSubmissionStatusIsTerminal(t *testing.T) {
	assert.False(t, SubmissionStatusPending.IsTerminal())
	assert.True(t, SubmissionStatusApproved.IsTerminal())
	assert.True(t, SubmissionStatusRejected.IsTerminal())
	assert.True(t, SubmissionStatusCancelled.IsTerminal())
}

func TestActionTypeValid(t *testing.T) {
	for _, a := range []ActionType{ActionTypeSubmit, ActionTypeApprove, ActionTypeReject, ActionTypeCancel, ActionTypeResubmit, ActionTypeAccept} {
		assert.True(t, a.Valid(), string(a))
	}
	assert.False(t, ActionType("ESCALATE").Valid())
	assert.False(t, ActionType("").Valid())
}

func TestActionTypeListValidate(t *testing.T) {
	assert.NoError(t, ActionTypeList{ActionTypeApprove, ActionTypeReject}.Validate())
	assert.Error(t, ActionTypeList{}.Validate(), "empty list")
	assert.Error(t, ActionTypeList{ActionTypeApprove, ActionTypeApprove}.Validate(), "duplicate")
	assert.Error(t, ActionTypeList{ActionType("NOPE")}.Validate(), "unknown kind")
}

func TestActionTypeListContains(t *testing.T) {
	list := ActionTypeList{ActionTypeApprove, ActionTypeReject}
	assert.True(t, list.Contains(ActionTypeReject))
	assert.False(t, list.Contains(ActionTypeCancel))
}

func TestStageValidate(t *testing.T) {
	user := uuid.New()
	perm := "cases.first_complaint_review"
	empty := ""

	valid := SubmissionStage{Order: 0, TargetUserID: &user, AllowedActions: ActionTypeList{ActionTypeApprove}}
	assert.NoError(t, valid.Validate())

	noTarget := SubmissionStage{Order: 1, AllowedActions: ActionTypeList{ActionTypeApprove}}
	assert.Error(t, noTarget.Validate())

	emptyPerm := SubmissionStage{Order: 1, TargetPermission: &empty, AllowedActions: ActionTypeList{ActionTypeApprove}}
	assert.Error(t, emptyPerm.Validate())

	negativeOrder := SubmissionStage{Order: -1, TargetPermission: &perm, AllowedActions: ActionTypeList{ActionTypeApprove}}
	assert.Error(t, negativeOrder.Validate())

	noActions := SubmissionStage{Order: 0, TargetPermission: &perm}
	assert.Error(t, noActions.Validate())
}

func TestValidateStageOrders(t *testing.T) {
	assert.NoError(t, ValidateStageOrders([]int{0}))
	assert.NoError(t, ValidateStageOrders([]int{2, 0, 1}))
	assert.Error(t, ValidateStageOrders([]int{1, 2, 3}), "not zero-based")
	assert.Error(t, ValidateStageOrders([]int{0, 0, 1}), "duplicate")
	assert.Error(t, ValidateStageOrders([]int{0, 2}), "gap")
}

func TestStageOrderContiguityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("any arrangement of {0..n-1} validates", prop.ForAll(
		func(n, rot int) bool {
			orders := make([]int, n)
			for i := range orders {
				orders[i] = (i + rot) % n
			}
			return ValidateStageOrders(orders) == nil
		},
		gen.IntRange(1, 32), gen.IntRange(0, 31),
	))

	properties.Property("pushing one order past the end breaks contiguity", prop.ForAll(
		func(n, k int) bool {
			orders := make([]int, n)
			for i := range orders {
				orders[i] = i
			}
			orders[k%n] = n + 1 + k
			return ValidateStageOrders(orders) != nil
		},
		gen.IntRange(1, 32), gen.IntRange(0, 31),
	))

	properties.Property("duplicating an order breaks contiguity", prop.ForAll(
		func(n, k int) bool {
			orders := make([]int, n)
			for i := range orders {
				orders[i] = i
			}
			orders[k%n] = orders[(k+1)%n]
			return ValidateStageOrders(orders) != nil
		},
		gen.IntRange(2, 32), gen.IntRange(0, 31),
	))

	properties.TestingRun(t)
}

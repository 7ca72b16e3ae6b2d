package staffing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCaseDesk/casedesk/internal/submission"
)

func TestRequestPayloadValidation(t *testing.T) {
	rt := NewRequestType(nil, nil)
	ctx := context.Background()

	valid := `{"caseId":"` + uuid.NewString() + `","requestedRole":"LEAD_DETECTIVE"}`
	got, err := rt.ValidatePayload(ctx, json.RawMessage(valid))
	require.NoError(t, err)
	body, ok := got.(*requestPayload)
	require.True(t, ok)
	assert.Equal(t, "LEAD_DETECTIVE", body.RequestedRole)

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not json", `[]`, "payload"},
		{"missing case id", `{"requestedRole":"DETECTIVE"}`, "CaseID"},
		{"bad case id", `{"caseId":"not-a-uuid","requestedRole":"DETECTIVE"}`, "CaseID"},
		{"unknown role", `{"caseId":"` + uuid.NewString() + `","requestedRole":"CAPTAIN"}`, "RequestedRole"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.ValidatePayload(ctx, json.RawMessage(tt.payload))
			invalid, ok := submission.AsInvalidPayload(err)
			require.True(t, ok)
			assert.Contains(t, invalid.Fields, tt.field)
		})
	}
}

func TestRequestsCannotBeFiledDirectly(t *testing.T) {
	rt := NewRequestType(nil, nil)
	ok, err := rt.CanSubmit(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

func TestIsPhoneNumber(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"+15551234567", true},
		{"5551234567", true},
		{"+", false},
		{"", false},
		{"555-123-4567", false},
		{"++1555", false},
		{"1555+", false},
		{"(555) 1234", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsPhoneNumber(tt.in))
		})
	}
}

func TestValidate_AgentCreate(t *testing.T) {
	err := Validate(model.AgentCreate{Name: "  ", Prompts: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.Fields()
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "is required", fields["prompts"])
	_, hasDetails := fields["additional_details"]
	assert.False(t, hasDetails, "additional details are optional")

	assert.NoError(t, Validate(model.AgentCreate{Name: "Dispatcher", Prompts: "Confirm pickup"}))
}

func TestValidate_AgentUpdatePartial(t *testing.T) {
	blank := " "
	assert.NoError(t, Validate(model.AgentUpdate{}))
	assert.Error(t, Validate(model.AgentUpdate{Name: &blank}))
}

func TestValidate_DriverCreate(t *testing.T) {
	assert.NoError(t, Validate(model.DriverCreate{Name: "Sam", PhoneNumber: "+15550100"}))

	err := Validate(model.DriverCreate{Name: "Sam", PhoneNumber: "555-0100"})
	require.Error(t, err)
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.Fields()["phone_number"], "digits")
}

func TestValidate_StartTestCall(t *testing.T) {
	tests := []struct {
		name        string
		req         model.StartTestCallRequest
		wantFields  []string
		expectValid bool
	}{
		{
			name:        "existing driver",
			req:         model.StartTestCallRequest{AgentID: "A1", DriverID: "D1", LoadNumber: "L100"},
			expectValid: true,
		},
		{
			name:        "new driver",
			req:         model.StartTestCallRequest{AgentID: "A1", DriverName: "Sam", DriverPhone: "+15550100", LoadNumber: "L100"},
			expectValid: true,
		},
		{
			name:       "missing agent and load",
			req:        model.StartTestCallRequest{DriverID: "D1"},
			wantFields: []string{"agent_id", "load_number"},
		},
		{
			name:       "new driver without phone",
			req:        model.StartTestCallRequest{AgentID: "A1", DriverName: "Sam", LoadNumber: "L100"},
			wantFields: []string{"driver_phone"},
		},
		{
			name:       "no driver at all",
			req:        model.StartTestCallRequest{AgentID: "A1", LoadNumber: "L100"},
			wantFields: []string{"driver_name", "driver_phone"},
		},
		{
			name:       "bad phone",
			req:        model.StartTestCallRequest{AgentID: "A1", DriverName: "Sam", DriverPhone: "call me", LoadNumber: "L100"},
			wantFields: []string{"driver_phone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.expectValid {
				assert.NoError(t, err)
				return
			}
			var verrs Errors
			require.True(t, errors.As(err, &verrs), "expected field errors, got %v", err)
			fields := verrs.Fields()
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
			assert.Len(t, fields, len(tt.wantFields))
		})
	}
}

func TestErrors_Message(t *testing.T) {
	err := Errors{{Field: "name", Message: "is required"}, {Field: "prompts", Message: "is required"}}
	assert.Equal(t, "validation failed: field 'name' is required; field 'prompts' is required", err.Error())
}

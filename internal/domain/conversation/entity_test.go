package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/internal/domain/onboarding"
	"salesdesk/pkg/errors"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Key
		wantErr bool
	}{
		{"plain", "lead-42", "lead-42", false},
		{"trimmed", "  lead-42\n", "lead-42", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"too long", strings.Repeat("k", MaxKeyLength+1), "", true},
		{"at limit", strings.Repeat("k", MaxKeyLength), Key(strings.Repeat("k", MaxKeyLength)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeadApply(t *testing.T) {
	lead := LeadInfo{FirstName: "Dana", Country: "Israel"}

	changed := lead.Apply(LeadFields{
		Country: strPtr("  Australia "),
		Email:   strPtr("   "),
		Phone:   strPtr("+61 400 000 000"),
	})

	assert.ElementsMatch(t, []string{"country", "phone"}, changed)
	assert.Equal(t, "Australia", lead.Country)
	assert.Equal(t, "", lead.Email)
	assert.Equal(t, "Dana", lead.FirstName)

	assert.Empty(t, lead.Apply(LeadFields{Country: strPtr("Australia")}))
	assert.Equal(t, []string{"new_lead"}, lead.Apply(LeadFields{NewLead: boolPtr(true)}))
}

func TestLeadFillMissing(t *testing.T) {
	cached := LeadInfo{FirstName: "Dana", Email: "dana@example.com", Country: "Canada", NewLead: true}

	fresh := LeadInfo{FirstName: "Danielle", Country: UnknownCountry}
	filled := fresh.FillMissing(cached)

	assert.ElementsMatch(t, []string{"country", "email", "new_lead"}, filled)
	assert.Equal(t, "Danielle", fresh.FirstName)
	assert.Equal(t, "Canada", fresh.Country)
	assert.Equal(t, "dana@example.com", fresh.Email)
	assert.True(t, fresh.NewLead)
}

func TestSnapshotClone(t *testing.T) {
	s := NewSnapshot()
	s.Lead.FirstName = "Dana"
	s.Onboarding.CompleteStep(onboarding.StepTradingExperience)

	c := s.Clone()
	c.Onboarding.CompleteStep(onboarding.StepBudgetCheck)
	c.Lead.FirstName = "Other"

	assert.Len(t, s.Onboarding.CompletedSteps, 1)
	assert.Equal(t, "Dana", s.Lead.FirstName)
}

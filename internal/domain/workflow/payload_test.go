package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

func intPtr(v int) *int { return &v }

func TestPayload_ValidateScore(t *testing.T) {
	table := BuildTable(OnboardRequestChain)
	final, ok := table.Lookup(entity.StatusPendingGovernanceCheck, ActionSubmit)
	require.True(t, ok)

	tests := []struct {
		name    string
		score   *int
		wantErr bool
	}{
		{"missing score", nil, true},
		{"zero", intPtr(0), true},
		{"lower bound", intPtr(1), false},
		{"upper bound", intPtr(100), false},
		{"above range", intPtr(101), true},
		{"negative", intPtr(-5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Payload{Score: tt.score}.Validate(final)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Contains(t, Reason(err), "governanceScore")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPayload_ValidateDenyComments(t *testing.T) {
	table := BuildTable(DataRequestChain)
	deny, ok := table.Lookup(entity.StatusPendingManager, ActionDeny)
	require.True(t, ok)

	for _, comments := range []string{"", "   ", "\n\t"} {
		err := Payload{Comments: comments}.Validate(deny)
		require.Error(t, err)
		assert.Equal(t, "Comments are required when denying a form", Reason(err))
	}

	assert.NoError(t, Payload{Comments: "Missing tax certificate"}.Validate(deny))
}

func TestPayload_IntermediateApprovalNeedsNothing(t *testing.T) {
	table := BuildTable(DataRequestChain)
	rule, ok := table.Lookup(entity.StatusPendingManager, ActionSubmit)
	require.True(t, ok)

	assert.NoError(t, Payload{}.Validate(rule))
	assert.NoError(t, Payload{Score: intPtr(500)}.Validate(rule), "score is ignored before the final stage")
}

func TestNewLedgerEntry(t *testing.T) {
	table := BuildTable(OnboardRequestChain)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	signed := now.Add(-time.Hour)
	form := onboardForm(entity.StatusPendingSeniorManager, "G", "SBU1", int64Ptr(7))
	senior := admin(9, entity.RoleSeniorManager, entity.RegionScope{RegionCode: "G"})

	rule, ok := table.Lookup(entity.StatusPendingSeniorManager, ActionSubmit)
	require.True(t, ok)

	entry := NewLedgerEntry(form, senior, rule, Payload{
		Comments:      "  Looks good  ",
		SignatureURL:  "https://files.example.com/sig.png",
		SignatureDate: &signed,
		Score:         intPtr(90),
	}, now)

	assert.Equal(t, int64(42), entry.FormID)
	assert.Equal(t, int64(9), entry.AdminID)
	assert.Equal(t, entity.RoleSeniorManager, entry.ActorRole)
	assert.Equal(t, entity.LedgerActionApproved, entry.Action)
	assert.Equal(t, entity.StatusPendingSeniorManager, entry.FromStatus)
	assert.Equal(t, entity.StatusPendingGovernanceCheck, entry.ToStatus)
	assert.Equal(t, "  Looks good  ", entry.Comments)
	assert.Equal(t, &signed, entry.SignatureDate)
	assert.Nil(t, entry.Score, "only the final stage records a score")
	assert.Equal(t, now, entry.CreatedAt)

	final, ok := table.Lookup(entity.StatusPendingGovernanceCheck, ActionSubmit)
	require.True(t, ok)
	entry = NewLedgerEntry(form, admin(10, entity.RoleGovernance), final, Payload{Score: intPtr(85)}, now)
	require.NotNil(t, entry.Score)
	assert.Equal(t, 85, *entry.Score)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_Final(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome Outcome
		want    bool
	}{
		{OutcomeSold, true},
		{OutcomeReserveNotMet, true},
		{OutcomeEnded, true},
		{OutcomeOther, false},
		{Outcome("live"), false},
		{Outcome(""), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.outcome.Final(), string(tc.outcome))
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeSold, ParseOutcome("sold"))
	assert.Equal(t, OutcomeReserveNotMet, ParseOutcome("reserve_not_met"))
	assert.Equal(t, OutcomeOther, ParseOutcome("active"))
	assert.Equal(t, OutcomeOther, ParseOutcome(""))
}

func TestExternalIdentity_Claimed(t *testing.T) {
	t.Parallel()

	var nilIdent *ExternalIdentity
	assert.False(t, nilIdent.Claimed())

	empty := ""
	assert.False(t, (&ExternalIdentity{ClaimedByUserID: &empty}).Claimed())

	user := "user-1"
	assert.True(t, (&ExternalIdentity{ClaimedByUserID: &user}).Claimed())
}

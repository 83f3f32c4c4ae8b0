package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	for name, want := range map[string]EventKind{
		"ftm":      KindFirstMessage,
		"reg":      KindRegistration,
		"dep":      KindDeposit,
		"redep":    KindRedeposit,
		"withdraw": KindWithdrawal,
		"revenue":  KindRevenue,
		"manager":  KindManagerAssignment,
	} {
		got, err := ParseKind(name)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseKind("bogus")
	assert.Error(t, err)
}

func TestKindClassification(t *testing.T) {
	assert.False(t, KindFirstMessage.HasAmount())
	assert.False(t, KindRegistration.HasAmount())
	assert.False(t, KindManagerAssignment.HasAmount())
	assert.True(t, KindDeposit.HasAmount())
	assert.True(t, KindRedeposit.HasAmount())
	assert.True(t, KindWithdrawal.HasAmount())
	assert.True(t, KindRevenue.HasAmount())

	assert.True(t, KindDeposit.DepositClass())
	assert.True(t, KindRedeposit.DepositClass())
	assert.False(t, KindWithdrawal.DepositClass())
	assert.False(t, KindRevenue.DepositClass())
}

func TestDedupWindow(t *testing.T) {
	assert.Equal(t, 30, KindFirstMessage.DedupWindow(30, 60))
	assert.Equal(t, 30, KindRegistration.DedupWindow(30, 60))
	assert.Equal(t, 60, KindDeposit.DedupWindow(30, 60))
	assert.Equal(t, 60, KindRedeposit.DedupWindow(30, 60))
	assert.Equal(t, 60, KindWithdrawal.DedupWindow(30, 60))
	assert.Equal(t, 60, KindRevenue.DedupWindow(30, 60))
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSum_DepositDefaults(t *testing.T) {
	assert.Equal(t, 100.0, ParseSum("100", KindDeposit, DefaultSum))
	assert.Equal(t, 0.5, ParseSum("0.5", KindDeposit, DefaultSum))

	// Missing, garbage or non-positive values fall back to the default.
	assert.Equal(t, DefaultSum, ParseSum("", KindDeposit, DefaultSum))
	assert.Equal(t, DefaultSum, ParseSum("abc", KindDeposit, DefaultSum))
	assert.Equal(t, DefaultSum, ParseSum("0", KindDeposit, DefaultSum))
	assert.Equal(t, DefaultSum, ParseSum("-5", KindRedeposit, DefaultSum))
	assert.Equal(t, DefaultSum, ParseSum("  ", KindWithdrawal, DefaultSum))
}

func TestParseSum_RevenueKeepsZeroAndNegative(t *testing.T) {
	assert.Equal(t, 0.0, ParseSum("0", KindRevenue, DefaultSum))
	assert.Equal(t, -12.5, ParseSum("-12.5", KindRevenue, DefaultSum))
	assert.Equal(t, 150.0, ParseSum("150", KindRevenue, DefaultSum))

	// Garbage revenue becomes zero, never the deposit default.
	assert.Equal(t, 0.0, ParseSum("", KindRevenue, DefaultSum))
	assert.Equal(t, 0.0, ParseSum("abc", KindRevenue, DefaultSum))
}

func TestParseCommission(t *testing.T) {
	c := ParseCommission("5.5")
	if assert.NotNil(t, c) {
		assert.Equal(t, 5.5, *c)
	}

	zero := ParseCommission("0")
	if assert.NotNil(t, zero) {
		assert.Equal(t, 0.0, *zero)
	}

	assert.Nil(t, ParseCommission(""))
	assert.Nil(t, ParseCommission("abc"))
	assert.Nil(t, ParseCommission("-1"))
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeIdentifier(" abc123 "))
	assert.Equal(t, "TRD_98765", NormalizeIdentifier("TRD_98765"))

	// Absent markers and unsubstituted macros collapse to empty.
	assert.Equal(t, "", NormalizeIdentifier(""))
	assert.Equal(t, "", NormalizeIdentifier("{clickid}"))
	assert.Equal(t, "", NormalizeIdentifier("{subscriber_id}"))
	assert.Equal(t, "", NormalizeIdentifier("null"))
	assert.Equal(t, "", NormalizeIdentifier("NULL"))
	assert.Equal(t, "", NormalizeIdentifier("undefined"))
	assert.Equal(t, "", NormalizeIdentifier("None"))
}

func TestIsValidSubscriberID(t *testing.T) {
	assert.True(t, IsValidSubscriberID("550e8400-e29b-41d4-a716-446655440000"))
	assert.False(t, IsValidSubscriberID(""))
	assert.False(t, IsValidSubscriberID("not-a-uuid"))
	assert.False(t, IsValidSubscriberID("12345"))
}

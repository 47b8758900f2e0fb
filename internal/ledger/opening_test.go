package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partita-dev/partita/internal/model"
)

func TestPostOpening(t *testing.T) {
	c := defaultChart(t)
	l := New(c, WithNow(fixedClock()))

	tests := []struct {
		code   string
		amount string
		want   string
		side   model.Side
	}{
		{"112", "1500", "1500", model.SideDebit}, // asset
		{"211", "300", "300", model.SideCredit},  // liability
		{"111", "-20", "-20", model.SideCredit},  // overdrawn cash
		{"52", "40", "40", model.SideDebit},      // expense
		{"42", "10", "10", model.SideCredit},     // revenue
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			batch, err := l.PostOpening(tt.code, dec(tt.amount), DefaultEquityCode)
			require.NoError(t, err)

			moves, err := l.Batch(batch)
			require.NoError(t, err)
			require.Len(t, moves, 2)
			assert.Equal(t, tt.code, moves[0].AccountCode)
			assert.Equal(t, tt.side, moves[0].Side)
			assert.Equal(t, DefaultEquityCode, moves[1].AccountCode)
			assert.Equal(t, tt.side.Opposite(), moves[1].Side)

			bal, err := c.Balance(tt.code)
			require.NoError(t, err)
			assert.True(t, bal.Equal(dec(tt.want)), "%s: %s", tt.code, bal)
		})
	}

	debits, credits := l.Totals()
	assert.True(t, debits.Equal(credits))
}

func TestPostOpening_Rejected(t *testing.T) {
	c := defaultChart(t)
	l := New(c, WithNow(fixedClock()))

	var verr *model.ValidationError
	_, err := l.PostOpening("112", dec("0"), DefaultEquityCode)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	_, err = l.PostOpening("31", dec("10"), DefaultEquityCode)
	require.ErrorAs(t, err, &verr)

	var unk *model.UnknownAccountError
	_, err = l.PostOpening("999", dec("10"), DefaultEquityCode)
	require.ErrorAs(t, err, &unk)

	var np *model.NotPostableError
	_, err = l.PostOpening("1", dec("10"), DefaultEquityCode)
	require.ErrorAs(t, err, &np)

	assert.Zero(t, l.Len())
}

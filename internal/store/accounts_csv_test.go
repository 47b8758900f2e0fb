package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partita-dev/partita/internal/ledger"
	"github.com/partita-dev/partita/internal/model"
)

func TestAccountsRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Code: "1", Name: "Assets", Kind: model.KindAsset},
		{Code: "11", Name: "Current Assets", Kind: model.KindAsset, ParentCode: "1", Postable: true, Description: `Cash, "bank" & co`},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))
	assert.True(t, strings.HasPrefix(buf.String(), AccountsHeader+"\n"))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, got)
}

func TestDefaultChartSurvivesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, ledger.DefaultChart()))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)

	c := ledger.NewChart()
	require.NoError(t, c.Restore(got))
	name, err := c.FullName("113")
	require.NoError(t, err)
	assert.Equal(t, "Assets > Current Assets > Receivables", name)
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"short row", []string{"1", "Assets"}},
		{"empty code", []string{"", "Assets", "asset", "", "false", ""}},
		{"bad kind", []string{"1", "Assets", "stuff", "", "false", ""}},
		{"bad postable", []string{"1", "Assets", "asset", "", "maybe", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalAccount(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestReadAccounts_Empty(t *testing.T) {
	accts, err := ReadAccounts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, accts)

	accts, err = ReadAccounts(strings.NewReader(AccountsHeader + "\n"))
	require.NoError(t, err)
	assert.Empty(t, accts)
}

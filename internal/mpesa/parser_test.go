package mpesa

import (
	"testing"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutgoingVariants(t *testing.T) {
	cases := []struct {
		msg    string
		code   string
		amount string
		to     string
	}{
		{`TIH5CRR635 Confirmed. Ksh65.00 paid to Anthony Wambua Muinde2. on 17/9/25 at 6:56 PM.New M-PESA balance is Ksh719.18. Transaction cost, Ksh0.00. Amount you can transact within the day is 498,760.00. Save frequent Tills for quick payment on M-PESA app https://bit.ly/mpesalnk`, "TIH5CRR635", "65", "Anthony Wambua Muinde2"},
		{`TIH6CSP6KA Confirmed. Ksh40.00 sent to Co-operative Bank Money Transfer for account 1082111 on 17/9/25 at 6:59 PM New M-PESA balance is Ksh679.18. Transaction cost, Ksh0.00.`, "TIH6CSP6KA", "40", "Co-operative Bank Money Transfer for account 1082111"},
		{`TII8I79A5O Confirmed. Ksh40.00 sent to Divinah  Nyabuto on 18/9/25 at 7:22 PM. New M-PESA balance is Ksh604.18. Transaction cost, Ksh0.00. Amount you can transact within the day is 499,925.00.`, "TII8I79A5O", "40", "Divinah Nyabuto"},
		{`TIJ9N9U6HT Confirmed. Ksh1,025.50 sent to Caroline  Mwania on 19/9/25 at 7:05PM. New M-PESA balance is Ksh579.18. Transaction cost, Ksh13.00.`, "TIJ9N9U6HT", "1025.5", "Caroline Mwania"},
	}

	for _, c := range cases {
		t.Run(c.code, func(t *testing.T) {
			p, err := Parse(c.msg)
			require.NoError(t, err)
			assert.Equal(t, c.code, p.Code)
			assert.Equal(t, Sent, p.Direction)
			assert.Equal(t, c.amount, p.Amount.String())
			assert.Equal(t, c.to, p.Counterparty)
		})
	}
}

func TestParseReceived(t *testing.T) {
	msg := `TKL2AB34CD Confirmed.You have received Ksh2,500.00 from JANE WANJIKU 0712345678 on 3/11/25 at 10:15 AM New M-PESA balance is Ksh3,219.18. Separate personal and business funds through Pochi la Biashara.`

	p, err := Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "TKL2AB34CD", p.Code)
	assert.Equal(t, Received, p.Direction)
	assert.Equal(t, "JANE WANJIKU 0712345678", p.Counterparty)
	assert.Equal(t, "3219.18", p.Balance.String())
	assert.True(t, p.Cost.IsZero())

	assert.Equal(t, time.November, p.At.Month())
	assert.Equal(t, 3, p.At.Day())
	assert.Equal(t, 10, p.At.Hour())

	amount, err := p.WalletAmount()
	require.NoError(t, err)
	assert.Equal(t, wallet.Major(2500), amount)
}

func TestParseUpperCaseCurrency(t *testing.T) {
	msg := `TKL2AB34CD CONFIRMED. You have received KSH2,500.00 from JANE WANJIKU 0712345678 on 3/11/25 at 10:15 AM New M-PESA balance is ksh3,219.18.`
	require.True(t, IsConfirmation(msg))

	p, err := Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "2500", p.Amount.String())
	assert.Equal(t, "3219.18", p.Balance.String())
}

func TestParseRejectsOtherText(t *testing.T) {
	for _, msg := range []string{
		"",
		"!send alice@qp 100",
		"Confirmed. nothing else here",
	} {
		_, err := Parse(msg)
		assert.Error(t, err, msg)
	}
}

func TestIsConfirmation(t *testing.T) {
	assert.True(t, IsConfirmation("TIH5CRR635 Confirmed. Ksh65.00 paid to X"))
	assert.True(t, IsConfirmation("TKL2AB34CD Confirmed.You have received Ksh1.00"))
	assert.False(t, IsConfirmation("!balance"))
}

// Package mpesa reads M-PESA confirmation messages pasted by users.
package mpesa

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/shopspring/decimal"
)

// Direction tells whether money left or reached the M-PESA account.
type Direction string

const (
	Sent     Direction = "SENT"
	Received Direction = "RECEIVED"
)

// Confirmation is a parsed M-PESA confirmation.
type Confirmation struct {
	Code         string
	Direction    Direction
	Amount       decimal.Decimal
	Counterparty string
	At           time.Time
	Balance      decimal.Decimal
	Cost         decimal.Decimal
}

// eat is East Africa Time, the zone M-PESA timestamps are written in.
var eat = time.FixedZone("EAT", 3*60*60)

// Ksh<digits>[,digits]* with an optional fractional part.
const money = `Ksh\s?[\d,]+(?:\.\d+)?`

var (
	sentPattern = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s+(` + money + `)\s+(?:sent|paid)\s+to\s+(.*?)\s*\.?\s+on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2}\s?(?:AM|PM))\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)\.\s*Transaction\s+cost,?\s*(` + money + `)`)

	receivedPattern = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s*You\s+have\s+received\s+(` + money + `)\s+from\s+(.*?)\s*\.?\s+on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2}\s?(?:AM|PM))\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)`)
)

// IsConfirmation reports whether line looks like the start of a
// confirmation message.
func IsConfirmation(line string) bool {
	line = strings.ToLower(line)
	if !strings.Contains(line, "confirmed") {
		return false
	}
	return strings.Contains(line, "sent to") ||
		strings.Contains(line, "paid to") ||
		strings.Contains(line, "received")
}

// Parse reads a sent, paid or received confirmation.
func Parse(msg string) (*Confirmation, error) {
	if m := receivedPattern.FindStringSubmatch(msg); m != nil {
		c, err := build(Received, m[1], m[2], m[3], m[4], m[5], m[6])
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	if m := sentPattern.FindStringSubmatch(msg); m != nil {
		c, err := build(Sent, m[1], m[2], m[3], m[4], m[5], m[6])
		if err != nil {
			return nil, err
		}
		if c.Cost, err = parseMoney(m[7]); err != nil {
			return nil, fmt.Errorf("failed to parse cost: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("not a valid M-PESA confirmation")
}

// WalletAmount converts the confirmation amount to wallet minor units.
func (c *Confirmation) WalletAmount() (wallet.Amount, error) {
	return wallet.FromDecimal(c.Amount)
}

func build(dir Direction, code, amount, counterparty, date, clock, balance string) (*Confirmation, error) {
	amt, err := parseMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	bal, err := parseMoney(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	at, err := parseTimestamp(date, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date/time: %w", err)
	}
	return &Confirmation{
		Code:         strings.ToUpper(code),
		Direction:    dir,
		Amount:       amt,
		Counterparty: strings.Join(strings.Fields(strings.TrimSuffix(counterparty, ".")), " "),
		At:           at,
		Balance:      bal,
	}, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "Ksh") {
		s = strings.TrimSpace(s[3:])
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// parseTimestamp reads "17/9/25" and "6:56PM" or "6:56 PM".
func parseTimestamp(date, clock string) (time.Time, error) {
	clock = strings.ToUpper(strings.ReplaceAll(clock, " ", ""))
	clock = clock[:len(clock)-2] + " " + clock[len(clock)-2:]
	return time.ParseInLocation("2/1/06 3:04 PM", date+" "+clock, eat)
}

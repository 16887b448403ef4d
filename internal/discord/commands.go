package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/NgigiN/paywallet/internal/mpesa"
	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const historyLimit = 10

const usage = "Commands:\n" +
	"`!register <name>` open a wallet\n" +
	"`!balance` show your balance\n" +
	"`!deposit <amount>` add money\n" +
	"`!send <handle> <amount>` pay someone\n" +
	"`!history [success|failed]` recent transactions\n" +
	"Paste an M-PESA *received* confirmation to top up."

// respond returns the reply for one message, or "" when the message is not
// meant for the bot.
func (b *Bot) respond(ctx context.Context, authorID, messageID, content string) string {
	content = strings.TrimSpace(content)
	args := strings.Fields(content)
	if len(args) == 0 {
		return ""
	}

	switch strings.ToLower(args[0]) {
	case "!help":
		return usage
	case "!register":
		return b.register(ctx, authorID, strings.Join(args[1:], " "))
	case "!balance":
		return b.balance(ctx, authorID)
	case "!deposit":
		return b.deposit(ctx, authorID, messageID, args[1:])
	case "!send":
		return b.send(ctx, authorID, messageID, args[1:])
	case "!history":
		return b.recent(ctx, authorID, args[1:])
	}

	if mpesa.IsConfirmation(content) {
		return b.topUp(ctx, authorID, content)
	}
	return ""
}

func owner(authorID string) string {
	return "discord:" + authorID
}

func (b *Bot) register(ctx context.Context, authorID, name string) string {
	if strings.TrimSpace(name) == "" {
		return "Usage: !register <name>"
	}
	acc, err := b.engine.Register(ctx, owner(authorID), name)
	if err != nil {
		return describe(err)
	}
	return fmt.Sprintf("Wallet opened for **%s**. Your handle is `%s`", acc.Name, acc.Handle)
}

func (b *Bot) balance(ctx context.Context, authorID string) string {
	acc, err := b.engine.AccountByOwner(ctx, owner(authorID))
	if err != nil {
		return describe(err)
	}
	return fmt.Sprintf("**%s** balance: Ksh%s", acc.Handle, acc.Balance)
}

func (b *Bot) deposit(ctx context.Context, authorID, messageID string, args []string) string {
	if len(args) != 1 {
		return "Usage: !deposit <amount>"
	}
	amount, err := wallet.ParseAmount(args[0])
	if err != nil {
		return describe(err)
	}
	acc, err := b.engine.AccountByOwner(ctx, owner(authorID))
	if err != nil {
		return describe(err)
	}
	if err := b.guard.Claim(ctx, "discord", messageID); err != nil {
		return describe(err)
	}
	receipt, err := b.engine.Deposit(ctx, engine.DepositRequest{AccountID: acc.ID, Amount: amount})
	if err != nil {
		b.release(ctx, "discord", messageID)
		return describe(err)
	}
	return fmt.Sprintf("Added Ksh%s. New balance: Ksh%s (`%s`)", amount, receipt.NewBalance, receipt.TransactionID)
}

func (b *Bot) send(ctx context.Context, authorID, messageID string, args []string) string {
	if len(args) != 2 {
		return "Usage: !send <handle> <amount>"
	}
	amount, err := wallet.ParseAmount(args[1])
	if err != nil {
		return describe(err)
	}
	acc, err := b.engine.AccountByOwner(ctx, owner(authorID))
	if err != nil {
		return describe(err)
	}
	if err := b.guard.Claim(ctx, "discord", messageID); err != nil {
		return describe(err)
	}
	receipt, err := b.engine.Transfer(ctx, engine.TransferRequest{
		SenderID:       acc.ID,
		ReceiverHandle: args[0],
		Amount:         amount,
	})
	if err != nil {
		if !wallet.Recorded(err) {
			b.release(ctx, "discord", messageID)
		}
		return describe(err)
	}
	reply := fmt.Sprintf("Sent Ksh%s to `%s`. New balance: Ksh%s (`%s`)",
		amount, wallet.NormalizeHandle(args[0]), receipt.NewBalance, receipt.TransactionID)
	if receipt.Flagged {
		reply += "\nThis transfer was flagged for review."
	}
	return reply
}

func (b *Bot) recent(ctx context.Context, authorID string, args []string) string {
	acc, err := b.engine.AccountByOwner(ctx, owner(authorID))
	if err != nil {
		return describe(err)
	}
	filter := history.Filter{Limit: historyLimit}
	if len(args) > 0 {
		switch status := wallet.Status(strings.ToUpper(args[0])); status {
		case wallet.StatusSuccess, wallet.StatusFailed:
			filter.Status = status
		default:
			return "Usage: !history [success|failed]"
		}
	}

	items, err := b.history.History(ctx, acc.ID, filter)
	if err != nil {
		return describe(err)
	}
	if len(items) == 0 {
		return "No transactions found."
	}

	var sb strings.Builder
	sb.WriteString("**Recent transactions**\n\n")
	for _, s := range items {
		sign := "+"
		if s.Direction == history.DirectionSent {
			sign = "-"
		}
		fmt.Fprintf(&sb, "• %sKsh%s %s `%s` [%s]\n  %s - %s\n",
			sign, s.Amount, strings.ToLower(string(s.Direction)), s.CounterpartyHandle, s.Status,
			s.Timestamp.Format("Jan 2, 2006 3:04 PM"), s.TransactionID)
	}
	return sb.String()
}

// topUp deposits every received M-PESA confirmation in content. The
// receipt code is the idempotency key, so pasting a message twice credits
// it once.
func (b *Bot) topUp(ctx context.Context, authorID, content string) string {
	acc, err := b.engine.AccountByOwner(ctx, owner(authorID))
	if err != nil {
		return describe(err)
	}

	var ok int
	var failures []string
	for i, msg := range splitConfirmations(content) {
		if err := b.topUpOne(ctx, acc.ID, msg); err != nil {
			failures = append(failures, fmt.Sprintf("Confirmation %d: %s", i+1, describe(err)))
			continue
		}
		ok++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Top-up complete**\nCredited: %d\n", ok)
	if len(failures) > 0 {
		fmt.Fprintf(&sb, "Failed: %d\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&sb, "• %s\n", f)
		}
	}
	return sb.String()
}

var errNotReceived = errors.New("only received confirmations can top up a wallet")

func (b *Bot) topUpOne(ctx context.Context, accountID uuid.UUID, msg string) error {
	conf, err := mpesa.Parse(msg)
	if err != nil {
		return err
	}
	if conf.Direction != mpesa.Received {
		return errNotReceived
	}
	amount, err := conf.WalletAmount()
	if err != nil {
		return err
	}
	if err := b.guard.Claim(ctx, "mpesa", conf.Code); err != nil {
		return err
	}
	_, err = b.engine.Deposit(ctx, engine.DepositRequest{
		AccountID:   accountID,
		Amount:      amount,
		Description: fmt.Sprintf("M-PESA top-up from %s", conf.Counterparty),
		Reference:   conf.Code,
	})
	if err != nil {
		b.release(ctx, "mpesa", conf.Code)
	}
	return err
}

func (b *Bot) release(ctx context.Context, scope, key string) {
	if err := b.guard.Release(ctx, scope, key); err != nil {
		logger.FromContext(ctx, b.log).Error("failed to release idempotency key",
			zap.String("scope", scope),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// splitConfirmations returns one entry per confirmation found in content.
func splitConfirmations(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if mpesa.IsConfirmation(line) {
			out = append(out, line)
		}
	}
	return out
}

// describe turns an error into a chat reply.
func describe(err error) string {
	var sf *wallet.SimulatedFailureError
	switch {
	case errors.As(err, &sf):
		return fmt.Sprintf("Payment failed (simulated). Transaction `%s` was recorded; no money moved.", sf.TransactionID)
	case errors.Is(err, wallet.ErrAccountNotFound):
		return "You have no wallet yet. Use `!register <name>`."
	case errors.Is(err, wallet.ErrDuplicateRequest):
		return "Already processed."
	case errors.Is(err, wallet.ErrEngineUnavailable):
		return "The wallet is unavailable right now, nothing was charged. Try again later."
	case errors.Is(err, errNotReceived):
		return err.Error()
	}
	var de *wallet.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return fmt.Sprintf("Invalid M-PESA message: %v", err)
}

package discord

import (
	"context"
	"fmt"

	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/bwmarrin/discordgo"
)

// messenger is the part of *discordgo.Session the reviewer needs.
type messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Reviewer posts flagged transactions to a review channel. It satisfies
// engine.Notifier.
type Reviewer struct {
	session   messenger
	channelID string
}

func NewReviewer(session messenger, channelID string) *Reviewer {
	return &Reviewer{session: session, channelID: channelID}
}

func (r *Reviewer) TransactionFlagged(ctx context.Context, tx wallet.Transaction) error {
	if r.channelID == "" {
		return nil
	}
	msg := fmt.Sprintf("🚩 **Flagged %s** `%s`\nAmount: Ksh%s\nStatus: %s\nFrom: %s\nTo: %s\n%s",
		tx.Kind, tx.ID, tx.Amount, tx.Status, tx.SenderID, tx.ReceiverID, tx.Description)
	if _, err := r.session.ChannelMessageSend(r.channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post flagged transaction: %w", err)
	}
	return nil
}

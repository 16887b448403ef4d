package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/idempotency"
	"github.com/NgigiN/paywallet/internal/storage"
	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const receivedMsg = `TKL2AB34CD Confirmed.You have received Ksh2,500.00 from JANE WANJIKU 0712345678 on 3/11/25 at 10:15 AM New M-PESA balance is Ksh3,219.18.`

func newTestBot(t *testing.T, random engine.RandomSource) *Bot {
	t.Helper()
	db, err := storage.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := idempotency.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	session, err := discordgo.New("Bot test")
	require.NoError(t, err)
	return NewBot(session, engine.New(db, engine.WithRandom(random)), history.New(db),
		idempotency.NewGuard(store, 0), "chan", zap.NewNop())
}

var never = engine.RandomFunc(func() float64 { return 0.999 })

func TestRespondFlow(t *testing.T) {
	b := newTestBot(t, never)
	ctx := context.Background()

	assert.Empty(t, b.respond(ctx, "1", "m0", "just chatting"))
	assert.Contains(t, b.respond(ctx, "1", "m1", "!help"), "!send")
	assert.Contains(t, b.respond(ctx, "1", "m2", "!balance"), "no wallet yet")

	assert.Contains(t, b.respond(ctx, "1", "m3", "!register Alice Doe"), "`alicedoe@qp`")
	assert.Contains(t, b.respond(ctx, "2", "m4", "!register Bob"), "`bob@qp`")
	assert.Contains(t, b.respond(ctx, "3", "m5", "!register alice doe"), "already taken")

	assert.Contains(t, b.respond(ctx, "1", "m6", "!deposit 1,000"), "New balance: Ksh1000.00")
	assert.Equal(t, "Already processed.", b.respond(ctx, "1", "m6", "!deposit 1,000"))

	assert.Contains(t, b.respond(ctx, "1", "m7", "!send bob@qp 400"), "New balance: Ksh600.00")
	assert.Contains(t, b.respond(ctx, "1", "m8", "!send bob@qp 5000"), "insufficient")
	assert.Contains(t, b.respond(ctx, "1", "m9", "!send bob@qp"), "Usage")
	assert.Contains(t, b.respond(ctx, "2", "m10", "!balance"), "Ksh400.00")

	reply := b.respond(ctx, "1", "m11", "!history")
	assert.Contains(t, reply, "-Ksh400.00 sent `bob@qp`")
	assert.Contains(t, reply, "+Ksh1000.00 added")
	assert.Equal(t, "No transactions found.", b.respond(ctx, "1", "m12", "!history failed"))
	assert.Contains(t, b.respond(ctx, "1", "m13", "!history pending"), "Usage")
}

func TestRespondSimulatedFailure(t *testing.T) {
	b := newTestBot(t, engine.RandomFunc(func() float64 { return 0 }))
	ctx := context.Background()
	b.respond(ctx, "1", "m1", "!register Alice")
	b.respond(ctx, "2", "m2", "!register Bob")
	b.respond(ctx, "1", "m3", "!deposit 100")

	assert.Contains(t, b.respond(ctx, "1", "m4", "!send bob@qp 10"), "Payment failed (simulated)")
	assert.Contains(t, b.respond(ctx, "1", "m5", "!history failed"), "[FAILED]")
}

func TestRespondMpesaTopUp(t *testing.T) {
	b := newTestBot(t, never)
	ctx := context.Background()
	b.respond(ctx, "1", "m1", "!register Jane")

	reply := b.respond(ctx, "1", "m2", receivedMsg)
	assert.Contains(t, reply, "Credited: 1")
	assert.Contains(t, b.respond(ctx, "1", "m3", "!balance"), "Ksh2500.00")

	// The receipt code is only ever credited once.
	reply = b.respond(ctx, "1", "m4", receivedMsg)
	assert.Contains(t, reply, "Credited: 0")
	assert.Contains(t, reply, "Already processed.")

	sent := `TIH5CRR635 Confirmed. Ksh65.00 paid to Anthony Muinde. on 17/9/25 at 6:56 PM.New M-PESA balance is Ksh719.18. Transaction cost, Ksh0.00.`
	reply = b.respond(ctx, "1", "m5", sent)
	assert.Contains(t, reply, "only received confirmations")
	assert.Contains(t, b.respond(ctx, "1", "m6", "!balance"), "Ksh2500.00")
}

func TestSplitConfirmations(t *testing.T) {
	content := receivedMsg + "\n\nsome chatter\n" +
		`TKL2AB34CE Confirmed.You have received Ksh10.00 from JOHN 0700000000 on 3/11/25 at 10:16 AM New M-PESA balance is Ksh3,229.18.`
	assert.Len(t, splitConfirmations(content), 2)
}

type fakeMessenger struct {
	channel, content string
	err              error
}

func (f *fakeMessenger) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	return &discordgo.Message{}, f.err
}

func TestReviewer(t *testing.T) {
	tx := wallet.Transaction{ID: "QP1", Amount: wallet.Major(60000), Kind: wallet.KindTransfer, Status: wallet.StatusSuccess, Flagged: true}

	m := &fakeMessenger{}
	require.NoError(t, NewReviewer(m, "review").TransactionFlagged(context.Background(), tx))
	assert.Equal(t, "review", m.channel)
	assert.Contains(t, m.content, "`QP1`")
	assert.Contains(t, m.content, "Ksh60000.00")

	silent := &fakeMessenger{}
	require.NoError(t, NewReviewer(silent, "").TransactionFlagged(context.Background(), tx))
	assert.Empty(t, silent.content)

	failing := &fakeMessenger{err: errors.New("rate limited")}
	assert.Error(t, NewReviewer(failing, "review").TransactionFlagged(context.Background(), tx))
}

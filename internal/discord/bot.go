// Package discord lets users drive their wallet from a Discord channel.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/idempotency"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// commandTimeout bounds the work done for one chat message.
const commandTimeout = 10 * time.Second

// NewSession creates a bot session that listens to guild messages.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	return session, nil
}

type Bot struct {
	session   *discordgo.Session
	engine    *engine.Engine
	history   *history.Service
	guard     *idempotency.Guard
	channelID string
	log       *zap.Logger
}

func NewBot(session *discordgo.Session, eng *engine.Engine, hist *history.Service, guard *idempotency.Guard, channelID string, log *zap.Logger) *Bot {
	bot := &Bot{
		session:   session,
		engine:    eng,
		history:   hist,
		guard:     guard,
		channelID: channelID,
		log:       log.Named("discord"),
	}
	session.AddHandler(bot.handleMessage)
	return bot
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.log.Warn("failed to close Discord session", zap.Error(err))
	}
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.ChannelID != b.channelID {
		return //specific to the channel
	}

	log := b.log.With(zap.String("message_id", m.ID), zap.String("author", m.Author.ID))
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), commandTimeout)
	defer cancel()

	reply := b.respond(ctx, m.Author.ID, m.ID, m.Content)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		log.Error("failed to send reply", zap.Error(err))
	}
}

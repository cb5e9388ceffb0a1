package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type DiscordChannel struct {
	session   *discordgo.Session
	channelID string
	inbound   chan InboundMessage
	cfg       *Config

	mu        sync.RWMutex
	botUserID string
}

func NewDiscordChannel(token, channelID string, cfg *Config) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo session: %w", err)
	}

	dc := &DiscordChannel{
		session:   session,
		channelID: channelID,
		inbound:   make(chan InboundMessage, 100),
		cfg:       cfg,
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(dc.onReady)
	session.AddHandler(dc.onMessage)

	return dc, nil
}

func (dc *DiscordChannel) Name() string { return "Discord" }

func (dc *DiscordChannel) Start(ctx context.Context) error {
	if err := dc.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}

	<-ctx.Done()
	return dc.session.Close()
}

func (dc *DiscordChannel) Send(ctx context.Context, event GameEvent) error {
	if !dc.cfg.discordEventAllowed(event.Type) {
		return nil
	}

	msg := formatGameEvent(event)
	if msg == "" {
		return nil
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: discord: %v", ErrTransport, err)
	}
	return nil
}

func (dc *DiscordChannel) Messages() <-chan InboundMessage { return dc.inbound }

func (dc *DiscordChannel) Close() error {
	return dc.session.Close()
}

// onReady runs on every (re)connect, on discordgo's event goroutine.
func (dc *DiscordChannel) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	dc.mu.Lock()
	dc.botUserID = r.User.ID
	dc.mu.Unlock()
	log.Printf("discord bot connected as %s", r.User.Username)
}

func (dc *DiscordChannel) selfID() string {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.botUserID
}

func (dc *DiscordChannel) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.Author.ID == dc.selfID() {
		return
	}
	if m.ChannelID != dc.channelID {
		return
	}
	if m.Content == "" {
		return
	}

	author := m.Author.GlobalName
	if author == "" {
		author = m.Author.Username
	}

	select {
	case dc.inbound <- InboundMessage{Source: "Discord", Author: author, Content: m.Content}:
	default:
		log.Printf("discord inbound queue full, dropping message from %s", author)
	}
}

func formatGameEvent(e GameEvent) string {
	switch e.Type {
	case "chat":
		return fmt.Sprintf("💬 **%s**: %s", e.Player, e.Message)
	case "join":
		return fmt.Sprintf("➡️ **%s** joined the game", e.Player)
	case "leave":
		return fmt.Sprintf("⬅️ **%s** left the game", e.Player)
	default:
		return ""
	}
}

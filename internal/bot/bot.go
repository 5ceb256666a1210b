package bot

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"

	"companion/internal/buffer"
	"companion/internal/config"
	"companion/internal/logging"
	"companion/internal/openrouter"
)

// Bot wires the Discord gateway to the message buffer and the LLM
// client.
type Bot struct {
	cfg     *config.Config
	session *discordgo.Session
	llm     *openrouter.Client
	store   *buffer.Store
}

// New creates the bot and registers its gateway handlers. Call Start to
// connect.
func New(cfg *config.Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create Discord session: %w", err)
	}

	llm := openrouter.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		openrouter.ReasoningSettings{
			Enabled:   cfg.LLM.Reasoning.Enabled,
			Effort:    cfg.LLM.Reasoning.Effort,
			MaxTokens: cfg.LLM.Reasoning.MaxTokens,
			Exclude:   cfg.LLM.Reasoning.Exclude,
		},
	)

	b := &Bot{
		cfg:     cfg,
		session: session,
		llm:     llm,
		store:   buffer.New(cfg.Behavior.MessageWindowSize),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return b, nil
}

// Start connects to the Discord gateway.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open Discord connection: %w", err)
	}
	return nil
}

// Stop disconnects from Discord.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logging.Info("bot", "Logged in as %s (ID: %s)", r.User.Username, r.User.ID)
	logging.Info("bot", "Connected to %d guild(s)", len(r.Guilds))

	if err := b.registerCommands(s); err != nil {
		logging.Error("bot", "Failed to register slash commands: %v", err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore our own messages
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if b.cfg.Behavior.IgnoreBots && m.Author.Bot {
		return
	}
	if !b.channelAllowed(m.ChannelID) {
		return
	}

	// First contact with this channel: load existing context
	if !b.store.Has(m.ChannelID) {
		b.backfill(s, m.ChannelID)
	}

	attachInfo, imageURLs := attachmentDetails(m.Attachments, b.cfg.Behavior.MaxImageSizeMB)
	replyTo := b.replyContext(s, m)

	b.store.Add(m.ChannelID, buffer.Message{
		Author:         displayName(m.Member, m.Author),
		Content:        m.Content,
		IsBot:          false,
		Timestamp:      m.Timestamp,
		AttachmentInfo: attachInfo,
		ReplyTo:        replyTo,
		ImageURLs:      imageURLs,
	})

	logging.Debug("bot", "Message from %s in channel %s: %s",
		displayName(m.Member, m.Author), m.ChannelID, logging.Truncate(m.Content, 50))

	// Reaction roll is independent of the reply roll
	b.maybeReact(s, m)

	if !b.shouldReply(s, m) {
		logging.Debug("bot", "Not replying to message in channel %s", m.ChannelID)
		return
	}

	logging.Info("bot", "Generating response for message in channel %s", m.ChannelID)

	response, err := b.generateResponse(s, m)
	if err != nil {
		var apiErr *openrouter.APIError
		if errors.As(err, &apiErr) || errors.Is(err, openrouter.ErrRecoveryExhausted) {
			logging.Error("bot", "Failed to generate response: %v", err)
		} else {
			logging.Error("bot", "Unexpected error generating response: %v", err)
		}
		return
	}
	if response == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, response, m.Reference()); err != nil {
		logging.Error("bot", "Failed to send response: %v", err)
		return
	}

	b.store.Add(m.ChannelID, ownReply(displayName(nil, s.State.User), response))
	logging.Debug("bot", "Sent response (%d chars): %s", len(response), logging.Truncate(response, 50))
}

// channelAllowed checks the blacklist, then the whitelist. Blacklist
// takes precedence; an empty whitelist allows everything.
func (b *Bot) channelAllowed(channelID string) bool {
	for _, id := range b.cfg.Channels.Blacklist {
		if id == channelID {
			return false
		}
	}
	if len(b.cfg.Channels.Whitelist) == 0 {
		return true
	}
	for _, id := range b.cfg.Channels.Whitelist {
		if id == channelID {
			return true
		}
	}
	return false
}

func (b *Bot) shouldReply(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if b.cfg.Behavior.AlwaysReplyOnMention && mentionsUser(m, s.State.User.ID) {
		logging.Debug("bot", "Replying due to mention")
		return true
	}

	roll := rand.Float64()
	if roll < b.cfg.Behavior.ReplyProbability {
		logging.Debug("bot", "Replying due to probability (rolled %.3f)", roll)
		return true
	}
	return false
}

func mentionsUser(m *discordgo.MessageCreate, userID string) bool {
	for _, u := range m.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// replyContext resolves the display name of the user being replied to.
func (b *Bot) replyContext(s *discordgo.Session, m *discordgo.MessageCreate) string {
	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		return displayName(m.ReferencedMessage.Member, m.ReferencedMessage.Author)
	}
	if m.MessageReference == nil || m.MessageReference.MessageID == "" {
		return ""
	}
	ref, err := s.ChannelMessage(m.MessageReference.ChannelID, m.MessageReference.MessageID)
	if err != nil || ref.Author == nil {
		return ""
	}
	return displayName(ref.Member, ref.Author)
}

// backfill seeds the channel's buffer with recent history so the first
// reply has context. On failure the buffer is still created so the
// backfill is not retried.
func (b *Bot) backfill(s *discordgo.Session, channelID string) {
	limit := b.cfg.Behavior.MessageWindowSize
	logging.Info("bot", "Backfilling channel %s with last %d messages...", channelID, limit)

	msgs, err := s.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		logging.Warn("bot", "Failed to backfill channel %s: %v, starting with empty buffer", channelID, err)
		b.store.Touch(channelID)
		return
	}

	// ChannelMessages returns newest first; reverse to chronological
	backfilled, skipped := 0, 0
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Author == nil {
			continue
		}
		isBot := msg.Author.ID == s.State.User.ID
		if msg.Author.Bot && !isBot && b.cfg.Behavior.IgnoreBots {
			skipped++
			continue
		}

		attachInfo, imageURLs := attachmentDetails(msg.Attachments, b.cfg.Behavior.MaxImageSizeMB)

		// Use only pre-resolved references here; no per-message fetches
		// during backfill
		replyTo := ""
		if msg.ReferencedMessage != nil && msg.ReferencedMessage.Author != nil {
			replyTo = displayName(msg.ReferencedMessage.Member, msg.ReferencedMessage.Author)
		}

		b.store.Add(channelID, buffer.Message{
			Author:         displayName(msg.Member, msg.Author),
			Content:        msg.Content,
			IsBot:          isBot,
			Timestamp:      msg.Timestamp,
			AttachmentInfo: attachInfo,
			ReplyTo:        replyTo,
			ImageURLs:      imageURLs,
		})
		backfilled++
	}

	b.store.Touch(channelID)
	logging.Info("bot", "Backfilled %d messages for channel %s (skipped %d bot messages)",
		backfilled, channelID, skipped)
}

// generateResponse builds a transcript from the channel's buffer and
// asks the model for a reply, truncating history on context overflow.
func (b *Bot) generateResponse(s *discordgo.Session, m *discordgo.MessageCreate) (string, error) {
	channelID := m.ChannelID
	botName := displayName(nil, s.State.User)

	var avoidEmojis []buffer.EmojiCount
	if b.cfg.Behavior.EmojiPenaltyEnabled {
		avoidEmojis = b.store.RecentBotEmojis(channelID, b.cfg.Behavior.EmojiHistorySize)
		if len(avoidEmojis) > 0 {
			logging.Debug("bot", "Emoji penalty: avoiding %d recently used emojis", len(avoidEmojis))
		}
	}

	messages := b.store.ForLLM(channelID, b.cfg.LLM.SystemPrompt, botName,
		b.cfg.Behavior.MaxImages, avoidEmojis)
	logging.Debug("bot", "Prepared %d messages for LLM context (channel %s)",
		len(messages)-1, channelID)

	truncate := func() []openrouter.Message {
		removed := b.store.TruncateOldest(channelID, 5)
		logging.Debug("bot", "Truncated %d oldest messages from buffer", removed)
		return b.store.ForLLM(channelID, b.cfg.LLM.SystemPrompt, botName,
			b.cfg.Behavior.MaxImages, avoidEmojis)
	}

	if b.cfg.Behavior.TypingIndicator {
		if err := s.ChannelTyping(channelID); err != nil {
			logging.Debug("bot", "Failed to send typing indicator: %v", err)
		}
	}

	return b.llm.Chat(messages, truncate)
}

// ownReply builds the buffer entry for a reply the bot just sent,
// stamped with its creation time.
func ownReply(botName, content string) buffer.Message {
	return buffer.Message{
		Author:    botName,
		Content:   content,
		IsBot:     true,
		Timestamp: time.Now(),
	}
}

// displayName prefers the guild nickname, then the global display name,
// then the account username.
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

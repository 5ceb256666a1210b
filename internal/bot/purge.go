package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"companion/internal/logging"
)

// purgeScanLimit caps how far back the purge command searches for the
// bot's own messages.
const purgeScanLimit = 500

func (b *Bot) registerCommands(s *discordgo.Session) error {
	_, err := s.ApplicationCommandCreate(s.State.User.ID, "", &discordgo.ApplicationCommand{
		Name:        "purge",
		Description: "Delete the bot's messages in this channel and clear the conversation buffer",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "count",
				Description: "Number of bot messages to delete (leave empty to delete all)",
				Required:    false,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create purge command: %w", err)
	}
	logging.Info("bot", "Registered slash command(s)")
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "purge" {
		return
	}

	// Deleting can take a while; defer the (ephemeral) response
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		logging.Error("bot", "Failed to acknowledge purge command: %v", err)
		return
	}

	count := -1 // -1 means delete all found
	for _, opt := range data.Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}

	logging.Info("bot", "Purge command invoked in channel %s (count=%d)", i.ChannelID, count)

	deleted, err := b.purgeOwnMessages(s, i.ChannelID, count)

	b.store.Clear(i.ChannelID)

	content := fmt.Sprintf("Deleted %d message(s) and cleared the conversation buffer.", deleted)
	if err != nil {
		logging.Error("bot", "Error during purge in channel %s: %v", i.ChannelID, err)
		content = fmt.Sprintf("An error occurred while purging messages (%d deleted): %v", deleted, err)
	} else {
		logging.Info("bot", "Purged %d messages from channel %s and cleared buffer", deleted, i.ChannelID)
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		logging.Error("bot", "Failed to send purge followup: %v", err)
	}
}

// purgeOwnMessages walks the channel history (newest first) deleting
// the bot's own messages, up to count when count >= 0.
func (b *Bot) purgeOwnMessages(s *discordgo.Session, channelID string, count int) (int, error) {
	deleted := 0
	scanned := 0
	beforeID := ""

	for scanned < purgeScanLimit {
		batch := purgeScanLimit - scanned
		if batch > 100 {
			batch = 100
		}
		msgs, err := s.ChannelMessages(channelID, batch, beforeID, "", "")
		if err != nil {
			return deleted, fmt.Errorf("fetch channel history: %w", err)
		}
		if len(msgs) == 0 {
			break
		}

		for _, msg := range msgs {
			scanned++
			beforeID = msg.ID
			if msg.Author == nil || msg.Author.ID != s.State.User.ID {
				continue
			}
			if count >= 0 && deleted >= count {
				return deleted, nil
			}
			if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
				// Already-deleted messages are not an error worth surfacing
				logging.Warn("bot", "Failed to delete message %s in channel %s: %v", msg.ID, channelID, err)
				continue
			}
			deleted++
		}
	}

	return deleted, nil
}

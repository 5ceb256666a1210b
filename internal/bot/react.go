package bot

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/bwmarrin/discordgo"

	"companion/internal/logging"
)

// standardEmojis are common Unicode emojis always offered to the model
// for reactions, alongside any server custom emojis.
var standardEmojis = []string{
	"😀", "😂", "🤣", "😊", "😍", "🥰", "😎", "🤔", "😮", "😢",
	"😭", "😤", "🤯", "🥳", "😴", "🤢", "🤮", "💀", "👻", "👽",
	"👍", "👎", "👏", "🙌", "🤝", "✌️", "🤞", "🤙", "💪", "🙏",
	"❤️", "🧡", "💛", "💚", "💙", "💜", "🖤", "🤍", "💔", "💯",
	"🔥", "⭐", "✨", "💫", "🎉", "🎊", "🏆", "🥇", "🎯", "💡",
	"✅", "❌", "⚠️", "❓", "❗", "💤", "💢", "💥", "💦", "🚀",
	"👀", "👁️", "🧠", "🗿", "💩", "🤡", "👑", "💎", "🪙", "📈",
	"📉", "🎵", "🎶", "🔔", "📢", "💬", "💭", "🗨️", "👋", "🫡",
}

// maybeReact rolls against the reaction probability and, on success,
// asks the model to pick a reaction emoji. Reaction failures are only
// logged; they never affect the reply path.
func (b *Bot) maybeReact(s *discordgo.Session, m *discordgo.MessageCreate) {
	prob := b.cfg.Behavior.ReactionProbability
	if prob <= 0 {
		return
	}
	roll := rand.Float64()
	if roll >= prob {
		return
	}

	logging.Debug("bot", "Reaction triggered for message in channel %s (rolled %.3f)", m.ChannelID, roll)

	available := b.availableEmojis(s, m.GuildID)

	emoji, ok := b.llm.PickEmoji(m.Content, displayName(m.Member, m.Author),
		available, b.cfg.Behavior.ReactionMaxTokens)
	if !ok {
		logging.Debug("bot", "Model returned no emoji")
		return
	}

	// Keep only the first token in case the model added extra text
	fields := strings.Fields(emoji)
	if len(fields) == 0 {
		return
	}
	emoji = fields[0]

	if err := s.MessageReactionAdd(m.ChannelID, m.ID, reactionID(emoji)); err != nil {
		logging.Warn("bot", "Failed to add reaction %s: %v", emoji, err)
		return
	}
	logging.Info("bot", "Reacted with %s to message in channel %s", emoji, m.ChannelID)
}

// availableEmojis returns the standard emoji set plus the guild's
// custom emojis in <:name:id> form.
func (b *Bot) availableEmojis(s *discordgo.Session, guildID string) []string {
	emojis := make([]string, len(standardEmojis))
	copy(emojis, standardEmojis)

	if guildID == "" {
		return emojis
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return emojis
		}
	}
	for _, e := range guild.Emojis {
		if e.Animated {
			emojis = append(emojis, fmt.Sprintf("<a:%s:%s>", e.Name, e.ID))
		} else {
			emojis = append(emojis, fmt.Sprintf("<:%s:%s>", e.Name, e.ID))
		}
	}

	logging.Debug("bot", "Available emojis: %d standard + %d custom",
		len(standardEmojis), len(guild.Emojis))
	return emojis
}

// reactionID converts an emoji to the form MessageReactionAdd expects:
// custom emojis go from "<:name:id>" (or "<a:name:id>") to "name:id",
// Unicode emojis pass through unchanged.
func reactionID(emoji string) string {
	if !strings.HasPrefix(emoji, "<") || !strings.HasSuffix(emoji, ">") {
		return emoji
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(emoji, "<"), ">")
	inner = strings.TrimPrefix(inner, "a")
	inner = strings.TrimPrefix(inner, ":")
	return inner
}

package buffer

import (
	"fmt"
	"strings"

	"companion/internal/openrouter"
)

// maxAvoidEmojis caps how many overused emojis are listed in the
// system prompt.
const maxAvoidEmojis = 10

// ForLLM formats the channel's buffer as an API transcript: a system
// message followed by one message per buffered entry, in order.
//
// Image handling: at most maxImages image URLs are included across the
// whole transcript, preferring the newest messages. A message whose
// images did not all fit gets a textual "N additional image(s)" note
// instead; messages with no images at all fall back to their attachment
// summary. maxImages = 0 disables image inclusion entirely.
//
// avoidEmojis, when non-empty, adds a steering clause to the system
// prompt listing recently overused emojis with their counts.
func (s *Store) ForLLM(channelID, systemPrompt, botName string, maxImages int, avoidEmojis []EmojiCount) []openrouter.Message {
	entries := s.Messages(channelID)

	system := fmt.Sprintf("%s\n\nYour name in this server is %s.", systemPrompt, botName)
	if len(avoidEmojis) > 0 {
		if len(avoidEmojis) > maxAvoidEmojis {
			avoidEmojis = avoidEmojis[:maxAvoidEmojis]
		}
		pairs := make([]string, len(avoidEmojis))
		for i, e := range avoidEmojis {
			pairs[i] = fmt.Sprintf("%s (%dx)", e.Emoji, e.Count)
		}
		system += fmt.Sprintf(
			"\n\nYou have recently used these emojis: %s. Vary your emoji usage and avoid repeating the same ones.",
			strings.Join(pairs, ", "))
	}

	messages := make([]openrouter.Message, 0, len(entries)+1)
	messages = append(messages, openrouter.Message{Role: "system", Content: system})

	// Allocate the image budget newest-first so recent images win.
	selected := make([]int, len(entries))
	remaining := maxImages
	for i := len(entries) - 1; i >= 0 && remaining > 0; i-- {
		n := len(entries[i].ImageURLs)
		if n > remaining {
			n = remaining
		}
		selected[i] = n
		remaining -= n
	}

	for i, entry := range entries {
		var parts []string

		if entry.ReplyTo != "" {
			parts = append(parts, fmt.Sprintf("(replying to %s)", entry.ReplyTo))
		}

		// Only prefix the author for user messages; the assistant role
		// already identifies the bot's own turns.
		if entry.IsBot {
			parts = append(parts, entry.Content)
		} else {
			parts = append(parts, fmt.Sprintf("[%s]: %s", entry.Author, entry.Content))
		}

		excluded := len(entry.ImageURLs) - selected[i]
		if excluded > 0 {
			parts = append(parts, fmt.Sprintf("%d additional image(s)", excluded))
		} else if entry.AttachmentInfo != "" && len(entry.ImageURLs) == 0 {
			parts = append(parts, entry.AttachmentInfo)
		}

		role := "user"
		if entry.IsBot {
			role = "assistant"
		}

		msg := openrouter.Message{Role: role, Content: strings.Join(parts, " ")}
		if selected[i] > 0 {
			msg.Images = entry.ImageURLs[:selected[i]]
		}
		messages = append(messages, msg)
	}

	return messages
}

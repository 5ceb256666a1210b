package buffer

import "sort"

// EmojiCount is an emoji symbol with its usage count.
type EmojiCount struct {
	Emoji string
	Count int
}

// emojiRanges are the inclusive Unicode code-point ranges treated as
// emoji for reaction tracking. Combined sequences (skin tones, ZWJ
// families, variation selectors) are split into their component
// symbols; only code points inside these ranges are counted.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // misc symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport & map symbols
	{0x1F1E6, 0x1F1FF}, // regional indicators (flags)
	{0x2700, 0x27BF},   // dingbats
	{0x1F900, 0x1F9FF}, // supplemental symbols & pictographs
	{0x1FA00, 0x1FA6F}, // chess symbols
	{0x1FA70, 0x1FAFF}, // symbols & pictographs extended-A
	{0x2600, 0x26FF},   // misc symbols
	{0x2300, 0x23FF},   // misc technical
}

func isEmojiRune(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// extractEmojis returns every emoji code point in s as an individual
// symbol, in order of appearance.
func extractEmojis(s string) []string {
	var out []string
	for _, r := range s {
		if isEmojiRune(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// RecentBotEmojis scans the channel's buffer from newest to oldest,
// looking only at the bot's own messages and stopping once scanLimit of
// them have been examined. It returns per-symbol usage counts sorted by
// count descending; ties keep first-encountered order.
func (s *Store) RecentBotEmojis(channelID string, scanLimit int) []EmojiCount {
	entries := s.Messages(channelID)

	counts := make(map[string]int)
	var order []string

	examined := 0
	for i := len(entries) - 1; i >= 0 && examined < scanLimit; i-- {
		if !entries[i].IsBot {
			continue
		}
		examined++
		for _, emoji := range extractEmojis(entries[i].Content) {
			if counts[emoji] == 0 {
				order = append(order, emoji)
			}
			counts[emoji]++
		}
	}

	result := make([]EmojiCount, 0, len(order))
	for _, emoji := range order {
		result = append(result, EmojiCount{Emoji: emoji, Count: counts[emoji]})
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].Count > result[b].Count
	})
	return result
}

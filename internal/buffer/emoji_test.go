package buffer

import (
	"reflect"
	"testing"
)

func TestExtractEmojis(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"no emojis", "just plain text", nil},
		{"single emoji", "nice 🔥", []string{"🔥"}},
		{"adjacent emojis split individually", "👍🔥", []string{"👍", "🔥"}},
		{"emoji between words", "lol 😂 ok 😂", []string{"😂", "😂"}},
		{"flag pair splits into regional indicators", "🇺🇸", []string{"🇺", "🇸"}},
		{"dingbat", "done ✅", []string{"✅"}},
		{"misc technical", "⏰ alarm", []string{"⏰"}},
		{"extended pictographs", "🫡🪙", []string{"🫡", "🪙"}},
		{"ascii punctuation ignored", "hello :-) <3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractEmojis(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractEmojis(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestRecentBotEmojisCountsAndSorts(t *testing.T) {
	s := New(20)
	s.Add("c", botMsg("haha 😂🔥"))
	s.Add("c", userMsg("alice", "😂😂😂 ignored, not the bot"))
	s.Add("c", botMsg("😂 again"))
	s.Add("c", botMsg("🔥🔥 and 👍"))

	got := s.RecentBotEmojis("c", 10)
	want := []EmojiCount{
		{Emoji: "🔥", Count: 3},
		{Emoji: "😂", Count: 2},
		{Emoji: "👍", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecentBotEmojis = %v, want %v", got, want)
	}
}

func TestRecentBotEmojisScanLimitCountsBotMessagesOnly(t *testing.T) {
	s := New(20)
	// Oldest bot message holds the only 💀; it must be skipped once two
	// newer bot messages exhaust the scan limit, regardless of how many
	// user messages sit in between.
	s.Add("c", botMsg("💀"))
	s.Add("c", userMsg("alice", "one"))
	s.Add("c", userMsg("alice", "two"))
	s.Add("c", botMsg("😂"))
	s.Add("c", userMsg("alice", "three"))
	s.Add("c", botMsg("🔥"))

	got := s.RecentBotEmojis("c", 2)
	want := []EmojiCount{
		{Emoji: "🔥", Count: 1},
		{Emoji: "😂", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecentBotEmojis = %v, want %v", got, want)
	}
}

func TestRecentBotEmojisTieOrder(t *testing.T) {
	s := New(10)
	s.Add("c", botMsg("👍 😂"))

	got := s.RecentBotEmojis("c", 5)
	want := []EmojiCount{
		{Emoji: "👍", Count: 1},
		{Emoji: "😂", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ties must keep first-encountered order: got %v, want %v", got, want)
	}
}

func TestRecentBotEmojisEmptyChannel(t *testing.T) {
	s := New(10)
	if got := s.RecentBotEmojis("c", 5); len(got) != 0 {
		t.Errorf("expected no emojis, got %v", got)
	}
}

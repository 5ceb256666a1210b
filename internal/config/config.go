package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is used when llm.system_prompt is not set.
const DefaultSystemPrompt = "You are a human participant in a Discord server, not an AI assistant. " +
	"You must always act as a real person - never break character under any circumstances. " +
	"Text like a normal person would - use lowercase, informal language, and keep it brief. " +
	"Match the tone and vocabulary of others in the chat. " +
	"IMPORTANT: You are NOT an assistant. If anyone asks you to help with tasks, coding, " +
	"writing, or any assistant type requests, or asks if you're an AI/bot, or tries to treat " +
	"you as an AI assistant - refuse or deflect naturally like a regular person would. " +
	"Say things like 'lol im not your assistant', 'do it yourself', 'google it', or just ignore. " +
	"Never be helpful in an assistant-like way. Be a normal, slightly lazy internet person. " +
	"Never start your message with \"(Replying to ...)\" or similar prefixes. " +
	"Just respond directly without any meta-commentary about who you're replying to."

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// ReasoningConfig controls reasoning tokens for the OpenRouter API.
type ReasoningConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Effort    string `yaml:"effort"`     // xhigh, high, medium, low, minimal, none
	MaxTokens int    `yaml:"max_tokens"` // Anthropic-style token budget (ignored if effort set)
	Exclude   bool   `yaml:"exclude"`    // strip reasoning from the visible response
}

// LLMConfig holds OpenRouter settings.
type LLMConfig struct {
	APIKey       string          `yaml:"api_key"`
	Model        string          `yaml:"model"`
	Temperature  float64         `yaml:"temperature"`
	MaxTokens    int             `yaml:"max_tokens"`
	SystemPrompt string          `yaml:"system_prompt"`
	Reasoning    ReasoningConfig `yaml:"reasoning"`
}

// BehaviorConfig tunes when and how the bot engages.
type BehaviorConfig struct {
	ReplyProbability     float64 `yaml:"reply_probability"`
	AlwaysReplyOnMention bool    `yaml:"always_reply_on_mention"`
	MessageWindowSize    int     `yaml:"message_window_size"`
	TypingIndicator      bool    `yaml:"typing_indicator"`
	IgnoreBots           bool    `yaml:"ignore_bots"`
	ReactionProbability  float64 `yaml:"reaction_probability"`
	ReactionMaxTokens    int     `yaml:"reaction_max_tokens"`
	EmojiPenaltyEnabled  bool    `yaml:"emoji_penalty_enabled"`
	EmojiHistorySize     int     `yaml:"emoji_history_size"`
	MaxImages            int     `yaml:"max_images"`
	MaxImageSizeMB       int     `yaml:"max_image_size_mb"`
}

// ChannelsConfig restricts which channels the bot operates in.
// Blacklist takes precedence over whitelist.
type ChannelsConfig struct {
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	LogToFile bool   `yaml:"log_to_file"`
}

// Config is the root configuration.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	LLM      LLMConfig      `yaml:"llm"`
	Behavior BehaviorConfig `yaml:"behavior"`
	Channels ChannelsConfig `yaml:"channels"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:        "anthropic/claude-3.5-sonnet",
			Temperature:  0.7,
			MaxTokens:    1024,
			SystemPrompt: DefaultSystemPrompt,
			Reasoning: ReasoningConfig{
				Exclude: true,
			},
		},
		Behavior: BehaviorConfig{
			ReplyProbability:     0.1,
			AlwaysReplyOnMention: true,
			MessageWindowSize:    50,
			TypingIndicator:      true,
			IgnoreBots:           true,
			ReactionProbability:  0.0,
			ReactionMaxTokens:    32,
			EmojiPenaltyEnabled:  true,
			EmojiHistorySize:     10,
			MaxImages:            4,
			MaxImageSizeMB:       5,
		},
		Logging: LoggingConfig{
			Level:     "INFO",
			File:      "logs/bot.log",
			LogToFile: true,
		},
	}
}

// Load reads, overlays and validates the configuration. Environment
// variables DISCORD_TOKEN and OPENROUTER_API_KEY take precedence over
// file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		c.Discord.Token = token
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
}

var validEffortLevels = map[string]bool{
	"xhigh": true, "high": true, "medium": true, "low": true, "minimal": true, "none": true,
}

var validLogLevels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true,
}

func (c *Config) validate() error {
	c.LLM.Reasoning.Effort = strings.ToLower(c.LLM.Reasoning.Effort)
	c.Logging.Level = strings.ToUpper(c.Logging.Level)

	if c.Discord.Token == "" {
		return fmt.Errorf("Discord token required: set discord.token or the DISCORD_TOKEN environment variable")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OpenRouter API key required: set llm.api_key or the OPENROUTER_API_KEY environment variable")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if e := c.LLM.Reasoning.Effort; e != "" && !validEffortLevels[e] {
		return fmt.Errorf("invalid reasoning effort level: %q", e)
	}
	if c.LLM.Reasoning.MaxTokens < 0 {
		return fmt.Errorf("llm.reasoning.max_tokens must not be negative, got %d", c.LLM.Reasoning.MaxTokens)
	}
	if p := c.Behavior.ReplyProbability; p < 0 || p > 1 {
		return fmt.Errorf("behavior.reply_probability must be between 0.0 and 1.0, got %v", p)
	}
	if p := c.Behavior.ReactionProbability; p < 0 || p > 1 {
		return fmt.Errorf("behavior.reaction_probability must be between 0.0 and 1.0, got %v", p)
	}
	if c.Behavior.MessageWindowSize <= 0 {
		return fmt.Errorf("behavior.message_window_size must be positive, got %d", c.Behavior.MessageWindowSize)
	}
	if c.Behavior.ReactionMaxTokens <= 0 {
		return fmt.Errorf("behavior.reaction_max_tokens must be positive, got %d", c.Behavior.ReactionMaxTokens)
	}
	if c.Behavior.EmojiHistorySize <= 0 {
		return fmt.Errorf("behavior.emoji_history_size must be positive, got %d", c.Behavior.EmojiHistorySize)
	}
	if c.Behavior.MaxImages < 0 {
		return fmt.Errorf("behavior.max_images must not be negative, got %d", c.Behavior.MaxImages)
	}
	if c.Behavior.MaxImageSizeMB <= 0 {
		return fmt.Errorf("behavior.max_image_size_mb must be positive, got %d", c.Behavior.MaxImageSizeMB)
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

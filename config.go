package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	State    StateConfig    `yaml:"state"`
	Notify   NotifyConfig   `yaml:"notify"`
	Commands CommandsConfig `yaml:"commands"`
	RCON     RCONConfig     `yaml:"rcon"`
	Discord  DiscordConfig  `yaml:"discord"`
	Console  ConsoleConfig  `yaml:"console"`
	OTel     OTelConfig     `yaml:"otel"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Loki     LokiConfig     `yaml:"loki"`
}

type SourceConfig struct {
	Kind      string        `yaml:"kind"` // "file" or "pod"
	Path      string        `yaml:"path"`
	Namespace string        `yaml:"namespace"`
	PodLabel  string        `yaml:"pod_label"`
	Window    int           `yaml:"window"`
	Interval  time.Duration `yaml:"interval"`
}

type StateConfig struct {
	Dir         string `yaml:"dir"`
	ChatHistory int    `yaml:"chat_history"`
}

type NotifyConfig struct {
	Events         []string `yaml:"events"` // "join", "leave", "chat", or ["all"]
	IgnoredPlayers []string `yaml:"ignored_players"`
}

type CommandsConfig struct {
	File string `yaml:"file"` // empty disables the command file
}

type RCONConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"-"` // from env only
}

type DiscordConfig struct {
	Enabled   bool     `yaml:"enabled"`
	BotToken  string   `yaml:"-"` // from env only
	ChannelID string   `yaml:"-"` // from env only
	Events    []string `yaml:"events"`
}

type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "jsonl" or "pretty"
}

type OTelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type LokiConfig struct {
	Enabled bool        `yaml:"enabled"`
	Events  interface{} `yaml:"events"` // "all" or []string
}

func defaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:      "file",
			Path:      "/data/logs/latest.log",
			Namespace: "minecraft",
			PodLabel:  "app=minecraft-server",
			Window:    100,
			Interval:  4 * time.Second,
		},
		State: StateConfig{
			Dir:         "/var/lib/minecraft-relay",
			ChatHistory: 100,
		},
		Notify: NotifyConfig{
			Events: []string{"all"},
		},
		RCON: RCONConfig{
			Host: "localhost",
			Port: "25575",
		},
		Discord: DiscordConfig{
			Enabled: true,
			Events:  []string{"all"},
		},
		Console: ConsoleConfig{
			Enabled: true,
			Format:  "pretty",
		},
		OTel: OTelConfig{
			ServiceName: "minecraft-relay",
		},
		Metrics: MetricsConfig{
			Interval: 15 * time.Second,
		},
		Loki: LokiConfig{
			Enabled: true,
			Events:  "all",
		},
	}
}

// loadConfig reads the YAML file at path (optional), then applies env overrides.
// An empty path falls back to $CONFIG_PATH. Callers validate after applying flags.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = envOr("CONFIG_PATH", "/etc/minecraft-relay/config.yaml")
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	// config file is optional; a missing file is not an error

	cfg.RCON.Password = os.Getenv("RCON_PASSWORD")
	if v := os.Getenv("RCON_HOST"); v != "" {
		cfg.RCON.Host = v
	}
	if v := os.Getenv("RCON_PORT"); v != "" {
		cfg.RCON.Port = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		cfg.Source.Path = v
	}
	cfg.Discord.BotToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Discord.ChannelID = os.Getenv("DISCORD_CHANNEL_ID")

	if cfg.Discord.BotToken == "" {
		cfg.Discord.Enabled = false
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Source.Kind {
	case "file":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for file sources")
		}
	case "pod":
		if c.Source.PodLabel == "" {
			return fmt.Errorf("source.pod_label is required for pod sources")
		}
	default:
		return fmt.Errorf("unknown source.kind %q: must be file or pod", c.Source.Kind)
	}
	if c.Source.Window <= 0 {
		return fmt.Errorf("source.window must be positive, got %d", c.Source.Window)
	}
	if c.Source.Interval <= 0 {
		return fmt.Errorf("source.interval must be positive, got %v", c.Source.Interval)
	}
	if c.State.ChatHistory <= 0 {
		return fmt.Errorf("state.chat_history must be positive, got %d", c.State.ChatHistory)
	}
	if c.RCON.Enabled && c.RCON.Password == "" {
		return fmt.Errorf("RCON_PASSWORD env is required when rcon is enabled")
	}
	if c.Discord.BotToken != "" && c.Discord.ChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	if c.Console.Format != "jsonl" && c.Console.Format != "pretty" {
		return fmt.Errorf("invalid console.format %q: must be one of: jsonl, pretty", c.Console.Format)
	}
	return nil
}

func (c *Config) onlinePlayersPath() string {
	return filepath.Join(c.State.Dir, "online_players.json")
}

func (c *Config) chatLogPath() string {
	return filepath.Join(c.State.Dir, "chat_log.json")
}

func (c *Config) pendingMessagesPath() string {
	return filepath.Join(c.State.Dir, "pending_messages.json")
}

// notifyAllowed reports whether an event should reach any channel at all.
func (c *Config) notifyAllowed(event GameEvent) bool {
	if event.Player != "" && slices.Contains(c.Notify.IgnoredPlayers, event.Player) {
		return false
	}
	return listAllows(c.Notify.Events, event.Type)
}

// discordEventAllowed returns whether a given event type should be sent to Discord.
func (c *Config) discordEventAllowed(eventType string) bool {
	if !c.Discord.Enabled {
		return false
	}
	return listAllows(c.Discord.Events, eventType)
}

// lokiEventAllowed returns whether a given event type should be sent to Loki.
func (c *Config) lokiEventAllowed(eventType string) bool {
	if !c.Loki.Enabled {
		return false
	}
	if s, ok := c.Loki.Events.(string); ok && s == "all" {
		return true
	}
	if list, ok := c.Loki.Events.([]interface{}); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s == eventType {
				return true
			}
		}
	}
	return false
}

func listAllows(list []string, eventType string) bool {
	for _, e := range list {
		if e == "all" || e == eventType {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for the agent service.
type Config struct {
	// LLM selects and configures the language-model collaborator.
	LLM LLMConfig `json:"llm"`

	// TTS configures speech synthesis. Optional; without an API key the
	// speech endpoint is disabled.
	TTS TTSConfig `json:"tts"`

	// Persistence selects the durable document backend.
	Persistence PersistenceConfig `json:"persistence"`

	// Session selects the conversation-state backend.
	Session SessionConfig `json:"session"`

	// Agent tunes the scheduler, memory, and tick behavior.
	Agent AgentConfig `json:"agent"`

	// Server configures the HTTP transport.
	Server ServerConfig `json:"server"`
}

// LLMConfig selects the language-model provider.
//
// Supported providers: openai, anthropic.
type LLMConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// TTSConfig configures the ElevenLabs speech surface.
type TTSConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// PersistenceConfig selects the document store backend.
//
// Supported backends: file, sqlite.
type PersistenceConfig struct {
	Backend string `json:"backend"`

	// DataDir is the directory for the file backend. Default: ./data.
	DataDir string `json:"data_dir,omitempty"`

	// DBPath is the database file for the sqlite backend.
	// Default: ./data/animus.db.
	DBPath string `json:"db_path,omitempty"`
}

// SessionConfig selects the conversation-state backend.
//
// Supported backends: memory, dynamodb.
type SessionConfig struct {
	Backend string `json:"backend"`

	// MaxSessions bounds the in-memory backend. Default: 32.
	MaxSessions int `json:"max_sessions,omitempty"`

	// TableName, Region, and Endpoint configure the dynamodb backend.
	TableName string `json:"table_name,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`

	// TTLDays is how long dynamodb sessions stay readable. Default: 14.
	TTLDays int `json:"ttl_days,omitempty"`
}

// AgentConfig tunes the agent's internals.
type AgentConfig struct {
	// TickMinInterval is the shortest allowed gap between non-forced
	// autonomous ticks. Default: 3s.
	TickMinInterval time.Duration `json:"-"`

	// TickMinIntervalText is the JSON form of TickMinInterval, in
	// time.ParseDuration syntax (e.g. "3s", "500ms").
	TickMinIntervalText string `json:"tick_min_interval,omitempty"`

	// MemoryCapacity bounds long-term memory. Default: 100.
	MemoryCapacity int `json:"memory_capacity,omitempty"`

	// CompactWatermark is the conversation length that triggers
	// compaction. Default: 15.
	CompactWatermark int `json:"compact_watermark,omitempty"`

	// CompactTarget is the length compaction shrinks toward. Default: 8.
	CompactTarget int `json:"compact_target,omitempty"`

	// Timezone is the IANA zone used for time awareness. Default: Local.
	Timezone string `json:"timezone,omitempty"`

	// PersonaPath optionally points at a persona JSON document.
	PersonaPath string `json:"persona_path,omitempty"`

	// CameraCapabilities lists capability ids that require a camera image.
	// Default: capture_image.
	CameraCapabilities []string `json:"camera_capabilities,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// LoadConfigFromEnv builds a Config from environment variables, loading a
// .env file first when one is found in the working directory or up to five
// levels above it.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "anthropic"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		TTS: TTSConfig{
			APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			VoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
			ModelID: os.Getenv("ELEVENLABS_MODEL_ID"),
		},
		Persistence: PersistenceConfig{
			Backend: getEnvOrDefault("ANIMUS_PERSISTENCE", "file"),
			DataDir: getEnvOrDefault("ANIMUS_DATA_DIR", "./data"),
			DBPath:  getEnvOrDefault("ANIMUS_DB_PATH", "./data/animus.db"),
		},
		Session: SessionConfig{
			Backend:   getEnvOrDefault("ANIMUS_SESSION_BACKEND", "memory"),
			TableName: os.Getenv("ANIMUS_SESSION_TABLE"),
			Region:    os.Getenv("AWS_REGION"),
			Endpoint:  os.Getenv("ANIMUS_DYNAMODB_ENDPOINT"),
		},
		Agent: AgentConfig{
			Timezone:    getEnvOrDefault("ANIMUS_TIMEZONE", ""),
			PersonaPath: os.Getenv("ANIMUS_PERSONA_PATH"),
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("ANIMUS_ADDR", ":8000"),
		},
	}

	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if v := os.Getenv("ANIMUS_SESSION_MAX"); v != "" {
		cfg.Session.MaxSessions, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("ANIMUS_SESSION_TTL_DAYS"); v != "" {
		cfg.Session.TTLDays, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("ANIMUS_TICK_MIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Agent.TickMinInterval = d
		}
	}
	if v := os.Getenv("ANIMUS_MEMORY_CAPACITY"); v != "" {
		cfg.Agent.MemoryCapacity, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("ANIMUS_COMPACT_WATERMARK"); v != "" {
		cfg.Agent.CompactWatermark, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("ANIMUS_COMPACT_TARGET"); v != "" {
		cfg.Agent.CompactTarget, _ = strconv.Atoi(v)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAgentError("LoadConfigFromJSON", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewAgentError("LoadConfigFromJSON", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Agent.TickMinInterval <= 0 && c.Agent.TickMinIntervalText != "" {
		if d, err := time.ParseDuration(c.Agent.TickMinIntervalText); err == nil {
			c.Agent.TickMinInterval = d
		}
	}
	if c.Agent.TickMinInterval <= 0 {
		c.Agent.TickMinInterval = 3 * time.Second
	}
	if c.Agent.MemoryCapacity <= 0 {
		c.Agent.MemoryCapacity = 100
	}
	if c.Agent.CompactWatermark <= 0 {
		c.Agent.CompactWatermark = 15
	}
	if c.Agent.CompactTarget <= 0 {
		c.Agent.CompactTarget = 8
	}
	if len(c.Agent.CameraCapabilities) == 0 {
		c.Agent.CameraCapabilities = []string{"capture_image"}
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 32
	}
	if c.Session.TTLDays <= 0 {
		c.Session.TTLDays = 14
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return NewAgentError("Validate",
			fmt.Errorf("unknown llm provider %q: %w", c.LLM.Provider, ErrConfig))
	}
	if c.LLM.APIKey == "" {
		return NewAgentError("Validate",
			fmt.Errorf("llm api key is required: %w", ErrConfig))
	}

	switch c.Persistence.Backend {
	case "file", "sqlite":
	default:
		return NewAgentError("Validate",
			fmt.Errorf("unknown persistence backend %q: %w", c.Persistence.Backend, ErrConfig))
	}

	switch c.Session.Backend {
	case "memory":
	case "dynamodb":
		if c.Session.TableName == "" {
			return NewAgentError("Validate",
				fmt.Errorf("dynamodb session table is required: %w", ErrConfig))
		}
	default:
		return NewAgentError("Validate",
			fmt.Errorf("unknown session backend %q: %w", c.Session.Backend, ErrConfig))
	}

	if c.Agent.Timezone != "" {
		if _, err := time.LoadLocation(c.Agent.Timezone); err != nil {
			return NewAgentError("Validate",
				fmt.Errorf("timezone %q: %w", c.Agent.Timezone, ErrConfig))
		}
	}
	if c.Agent.TickMinIntervalText != "" {
		if _, err := time.ParseDuration(c.Agent.TickMinIntervalText); err != nil {
			return NewAgentError("Validate",
				fmt.Errorf("tick min interval %q: %w", c.Agent.TickMinIntervalText, ErrConfig))
		}
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for a .env file in the current directory and up to
// five directory levels above it.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

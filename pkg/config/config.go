package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/spf13/viper"
)

type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Mastodon MastodonConfig `mapstructure:"mastodon"`
	Reddit   RedditConfig   `mapstructure:"reddit"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
}

type AgentConfig struct {
	EnabledPlatforms      []string            `mapstructure:"enabled_platforms"`
	PollIntervalSeconds   int                 `mapstructure:"poll_interval_seconds"`
	Keywords              []string            `mapstructure:"keywords"`
	KeywordsPerPlatform   map[string][]string `mapstructure:"keywords_per_platform"`
	SimilarityThreshold   float64             `mapstructure:"similarity_threshold"`
	InteractiveApproval   bool                `mapstructure:"interactive_approval"`
	RequestTimeoutSeconds int                 `mapstructure:"request_timeout_seconds"`
	ShutdownGraceSeconds  int                 `mapstructure:"shutdown_grace_seconds"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey         string   `mapstructure:"api_key"`
	Model          string   `mapstructure:"model"`
	EmbeddingModel string   `mapstructure:"embedding_model"`
	MaxTokens      int      `mapstructure:"max_tokens"`
	Temperature    float64  `mapstructure:"temperature"`
	IntentLabels   []string `mapstructure:"intent_labels"`
}

type OllamaConfig struct {
	Host        string  `mapstructure:"host"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type SafetyConfig struct {
	MaxResponseLength int      `mapstructure:"max_response_length"`
	MinResponseLength int      `mapstructure:"min_response_length"`
	Blocklist         []string `mapstructure:"blocklist"`
}

type ApprovalConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	ChatID         int64  `mapstructure:"chat_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type MastodonConfig struct {
	InstanceURL string `mapstructure:"instance_url"`
	AccessToken string `mapstructure:"access_token"`
}

type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	UserAgent    string `mapstructure:"user_agent"`
}

type YouTubeConfig struct {
	APIKey      string `mapstructure:"api_key"`
	MaxVideos   int64  `mapstructure:"max_videos"`
	MaxComments int64  `mapstructure:"max_comments"`
}

func (c *AgentConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *AgentConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *AgentConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// PlatformEnabled reports whether the platform is in the enabled set.
func (c *Config) PlatformEnabled(p models.Platform) bool {
	for _, name := range c.Agent.EnabledPlatforms {
		if models.Platform(name) == p {
			return true
		}
	}
	return false
}

// KeywordsFor returns the keyword set for a platform: the per-platform
// override when present, otherwise the global set.
func (c *Config) KeywordsFor(p models.Platform) []string {
	if kws, ok := c.Agent.KeywordsPerPlatform[string(p)]; ok && len(kws) > 0 {
		return kws
	}
	return c.Agent.Keywords
}

// Validate checks the startup invariants. A validation failure is the only
// error that is fatal to the whole process.
func (c *Config) Validate() error {
	if len(c.Agent.EnabledPlatforms) == 0 {
		return fmt.Errorf("no platforms enabled")
	}
	for _, name := range c.Agent.EnabledPlatforms {
		known := false
		for _, p := range models.KnownPlatforms {
			if models.Platform(name) == p {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown platform %q", name)
		}
		if len(c.KeywordsFor(models.Platform(name))) == 0 {
			return fmt.Errorf("platform %q has no keywords to monitor", name)
		}
	}
	if c.Agent.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %d", c.Agent.PollIntervalSeconds)
	}
	if c.Agent.SimilarityThreshold < 0 || c.Agent.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %g", c.Agent.SimilarityThreshold)
	}
	if c.Agent.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.Agent.RequestTimeoutSeconds)
	}
	if c.Agent.InteractiveApproval {
		if c.Approval.TelegramToken == "" || c.Approval.ChatID == 0 {
			return fmt.Errorf("interactive approval requires approval.telegram_token and approval.chat_id")
		}
	}
	return nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("agent.poll_interval_seconds", 600)
	v.SetDefault("agent.similarity_threshold", 0.75)
	v.SetDefault("agent.interactive_approval", false)
	v.SetDefault("agent.request_timeout_seconds", 30)
	v.SetDefault("agent.shutdown_grace_seconds", 15)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.intent_labels", []string{
		"pricing and costs",
		"technical support issue",
		"positive feedback",
		"complaint or negative feedback",
		"feature request",
		"general question",
		"spam or irrelevant",
		"question about availability",
	})
	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2:3b")
	v.SetDefault("ollama.max_tokens", 100)
	v.SetDefault("ollama.temperature", 0.7)
	v.SetDefault("safety.max_response_length", 280)
	v.SetDefault("safety.min_response_length", 20)
	v.SetDefault("approval.timeout_seconds", 300)
	v.SetDefault("reddit.user_agent", "SocialMediaAgent/1.0")
	v.SetDefault("mastodon.instance_url", "https://mastodon.social")
	v.SetDefault("youtube.max_videos", 5)
	v.SetDefault("youtube.max_comments", 20)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Approval.TelegramToken = token
	}
	if token := v.GetString("MASTODON_ACCESS_TOKEN"); token != "" {
		config.Mastodon.AccessToken = token
	}
	if id := v.GetString("REDDIT_CLIENT_ID"); id != "" {
		config.Reddit.ClientID = id
	}
	if secret := v.GetString("REDDIT_CLIENT_SECRET"); secret != "" {
		config.Reddit.ClientSecret = secret
	}
	if user := v.GetString("REDDIT_USERNAME"); user != "" {
		config.Reddit.Username = user
	}
	if pass := v.GetString("REDDIT_PASSWORD"); pass != "" {
		config.Reddit.Password = pass
	}
	if key := v.GetString("YOUTUBE_API_KEY"); key != "" {
		config.YouTube.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"20m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// SecretsFile is the fallback secret store consulted after the environment.
	SecretsFile string `env:"SECRETS_FILE" envDefault:".streamlit/secrets.toml"`

	Transcription TranscriptionConfig
	Diarization   DiarizationConfig
	Analysis      AnalysisConfig

	UploadMaxMB       int64         `env:"UPLOAD_MAX_MB" envDefault:"200"`
	TempDir           string        `env:"TEMP_DIR"`
	MaxConcurrentRuns int           `env:"MAX_CONCURRENT_RUNS" envDefault:"1"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	DemoDir     string `env:"DEMO_DIR" envDefault:"./analysis"`
	DemoPattern string `env:"DEMO_PATTERN" envDefault:"analysis_*.json"`
	DemoWatch   bool   `env:"DEMO_WATCH" envDefault:"true"`
	DemoS3      S3Config

	MQTT MQTTConfig
}

type TranscriptionConfig struct {
	URL         string        `env:"TRANSCRIBE_URL" envDefault:"https://api.openai.com/v1/audio/transcriptions"`
	Model       string        `env:"TRANSCRIBE_MODEL" envDefault:"whisper-1"`
	Prompt      string        `env:"TRANSCRIBE_PROMPT" envDefault:"Business meeting discussion about strategy, innovation, decisions, market, clients, products and team organisation."`
	Language    string        `env:"TRANSCRIBE_LANGUAGE"`
	Temperature float64       `env:"TRANSCRIBE_TEMPERATURE" envDefault:"0"`
	Timeout     time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"5m"`
}

type DiarizationConfig struct {
	BaseURL          string        `env:"DIARIZE_URL" envDefault:"https://api.assemblyai.com/v2"`
	SpeakersExpected int           `env:"DIARIZE_SPEAKERS_EXPECTED" envDefault:"0"`
	Sentiment        bool          `env:"DIARIZE_SENTIMENT" envDefault:"false"`
	Highlights       bool          `env:"DIARIZE_HIGHLIGHTS" envDefault:"false"`
	PollInterval     time.Duration `env:"DIARIZE_POLL_INTERVAL" envDefault:"3s"`
	Timeout          time.Duration `env:"DIARIZE_TIMEOUT" envDefault:"10m"`
}

type AnalysisConfig struct {
	URL         string        `env:"LLM_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	Model       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Temperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	MaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"2000"`
	MaxChars    int           `env:"ANALYSIS_MAX_CHARS" envDefault:"4000"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"2m"`
}

// S3Config selects an S3-compatible bucket as the demo corpus source.
type S3Config struct {
	Bucket    string `env:"DEMO_S3_BUCKET"`
	Endpoint  string `env:"DEMO_S3_ENDPOINT"`
	Region    string `env:"DEMO_S3_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"DEMO_S3_ACCESS_KEY"`
	SecretKey string `env:"DEMO_S3_SECRET_KEY"`
	Prefix    string `env:"DEMO_S3_PREFIX" envDefault:"analysis/"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// MQTTConfig enables run notifications when BrokerURL is set.
type MQTTConfig struct {
	BrokerURL   string `env:"MQTT_BROKER_URL"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"meeting-intel"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"meeting-intel"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	SecretsFile string
	DemoDir     string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.SecretsFile != "" {
		cfg.SecretsFile = overrides.SecretsFile
	}
	if overrides.DemoDir != "" {
		cfg.DemoDir = overrides.DemoDir
	}

	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = 1
	}
	if cfg.Analysis.MaxChars <= 0 {
		cfg.Analysis.MaxChars = 4000
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	return cfg, nil
}

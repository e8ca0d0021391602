package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Env          string             `yaml:"env"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	NATS         NATSConfig         `yaml:"nats"`
	Platform     PlatformConfig     `yaml:"platform"`
	Ranks        []RankConfig       `yaml:"ranks"`
	Activity     ActivityConfig     `yaml:"activity"`
	Decay        DecayConfig        `yaml:"decay"`
	Applications ApplicationsConfig `yaml:"applications"`
	HTTP         HTTPConfig         `yaml:"http"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL              string        `yaml:"url"`
	ConsumerGroup    string        `yaml:"consumer_group"`
	SubscribersCount int           `yaml:"subscribers_count"`
	AckWait          time.Duration `yaml:"ack_wait"`
	CredsFile        string        `yaml:"creds_file"`
	NKeySeedFile     string        `yaml:"nkey_seed_file"`
	Token            string        `yaml:"token"`
}

// PlatformConfig configures the request/reply client of the chat gateway.
type PlatformConfig struct {
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
	RateLimit     float64       `yaml:"rate_limit"`
	Burst         int           `yaml:"burst"`
}

// RankConfig is one tier of the ladder.
type RankConfig struct {
	Name        string `yaml:"name"`
	Requirement int64  `yaml:"requirement"`
	Role        string `yaml:"role"`
}

// ActivityConfig holds the scoring policy.
type ActivityConfig struct {
	// OwnerID is the only scored author when Env is "dev".
	OwnerID          string        `yaml:"owner_id"`
	Cooldown         time.Duration `yaml:"cooldown"`
	ExcludedChannels []string      `yaml:"excluded_channels"`
	InactiveAfter    time.Duration `yaml:"inactive_after"`
}

// DecayConfig configures the periodic score decay.
type DecayConfig struct {
	// Driver is "ticker" (in process) or "river" (Postgres-backed job queue).
	Driver           string        `yaml:"driver"`
	Interval         time.Duration `yaml:"interval"`
	Rate             float64       `yaml:"rate"`
	Grace            time.Duration `yaml:"grace"`
	ReconcileTimeout time.Duration `yaml:"reconcile_timeout"`
}

// ApplicationsConfig configures the membership application flow.
type ApplicationsConfig struct {
	LobbyChannel   string           `yaml:"lobby_channel"`
	ReviewChannel  string           `yaml:"review_channel"`
	WelcomeChannel string           `yaml:"welcome_channel"`
	MemberRole     string           `yaml:"member_role"`
	ReviewerRole   string           `yaml:"reviewer_role"`
	Questions      []QuestionConfig `yaml:"questions"`
}

// QuestionConfig is one application question.
type QuestionConfig struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`
}

// HTTPConfig holds the HTTP server configuration. An empty JWTSecret
// leaves the API routes unmounted.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	JWTSecret      string   `yaml:"jwt_secret"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	DecayDriverTicker = "ticker"
	DecayDriverRiver  = "river"
)

// LoadConfig loads the configuration from a YAML file and validates it.
func LoadConfig(filename string) (*Config, error) {
	cfg, err := Read(filename)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the YAML file, applies env overrides and defaults without
// validating. A missing file leaves only the environment.
func Read(filename string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// fall back to environment variables only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		cfg.Postgres.AutoMigrate = v == "true"
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_CREDS_FILE"); v != "" {
		cfg.NATS.CredsFile = v
	}
	if v := os.Getenv("NATS_NKEY_SEED_FILE"); v != "" {
		cfg.NATS.NKeySeedFile = v
	}
	if v := os.Getenv("NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}
	if v := os.Getenv("OWNER_ID"); v != "" {
		cfg.Activity.OwnerID = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.HTTP.JWTSecret = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("DECAY_DRIVER"); v != "" {
		cfg.Decay.Driver = v
	}
	if v := os.Getenv("DECAY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DECAY_INTERVAL value: %w", err)
		}
		cfg.Decay.Interval = d
	}
	if v := os.Getenv("DECAY_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DECAY_RATE value: %w", err)
		}
		cfg.Decay.Rate = f
	}
	if v := os.Getenv("EXCLUDED_CHANNELS"); v != "" {
		cfg.Activity.ExcludedChannels = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Decay.Driver == "" {
		c.Decay.Driver = DecayDriverTicker
	}
	if c.Decay.Interval <= 0 {
		c.Decay.Interval = 5 * time.Minute
	}
	if c.Activity.Cooldown == 0 {
		c.Activity.Cooldown = 5 * time.Second
	}
	if c.Activity.InactiveAfter <= 0 {
		c.Activity.InactiveAfter = 14 * 24 * time.Hour
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
}

// Validate reports every configuration error that prevents startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres dsn (DATABASE_URL) not set"))
	}
	if c.NATS.URL == "" {
		errs = append(errs, errors.New("nats url (NATS_URL) not set"))
	}
	if len(c.Ranks) == 0 {
		errs = append(errs, errors.New("ranks must not be empty"))
	}
	for i, r := range c.Ranks {
		if strings.TrimSpace(r.Role) == "" {
			errs = append(errs, fmt.Errorf("ranks[%d] (%s) role must be set", i, r.Name))
		}
	}
	if c.Decay.Driver != DecayDriverTicker && c.Decay.Driver != DecayDriverRiver {
		errs = append(errs, fmt.Errorf("unknown decay driver %q", c.Decay.Driver))
	}
	if c.Decay.Rate < 0 || c.Decay.Rate > 1 {
		errs = append(errs, fmt.Errorf("decay rate %v outside [0, 1]", c.Decay.Rate))
	}
	if c.Env == "dev" && c.Activity.OwnerID == "" {
		errs = append(errs, errors.New("activity owner_id is required in dev"))
	}
	return errors.Join(errs...)
}

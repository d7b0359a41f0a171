package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	BaseURL        string                `yaml:"base_url"`
	DSN            string                `yaml:"dsn"` // MySQL DSN, overrides database block
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	AdminToken     string                `yaml:"admin_token"`
	MXTimeout      time.Duration         `yaml:"mx_timeout"`
	Mail           MailConfig            `yaml:"mail"`
	Delivery       DeliveryConfig        `yaml:"delivery"`
	Content        ContentConfig         `yaml:"content"`
	Alert          AlertConfig           `yaml:"alert"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	From      string        `yaml:"from"`
	ReplyTo   string        `yaml:"reply_to"`
	Transport string        `yaml:"transport"` // log | smtp | resend
	Timeout   time.Duration `yaml:"timeout"`
	SMTP      SMTPConfig    `yaml:"smtp"`
	Resend    ResendConfig  `yaml:"resend"`
}

type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// DeliveryConfig controls the scheduled daily email.
type DeliveryConfig struct {
	SendHour    int           `yaml:"send_hour"`
	Schedule    string        `yaml:"schedule"` // 5-field cron expression
	Concurrency int           `yaml:"concurrency"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
}

// ContentConfig points at the photo and fact sources.
type ContentConfig struct {
	FlickrAPIKey string         `yaml:"flickr_api_key"`
	FlickrURL    string         `yaml:"flickr_url"`
	FactFeedURL  string         `yaml:"fact_feed_url"`
	Timeout      time.Duration  `yaml:"timeout"`
	LookbackDays int            `yaml:"lookback_days"`
	Fallback     FallbackConfig `yaml:"fallback"`
}

// FallbackConfig is used when the photo or fact source is unavailable.
type FallbackConfig struct {
	PhotoURL        string `yaml:"photo_url"`
	AttributionURL  string `yaml:"attribution_url"`
	AttributionName string `yaml:"attribution_name"`
	Fact            string `yaml:"fact"`
}

// AlertConfig tells where failed delivery runs are reported.
type AlertConfig struct {
	OperatorEmail string `yaml:"operator_email"`
	BarkKey       string `yaml:"bark_key"`
	BarkServer    string `yaml:"bark_server"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, then normalizes and validates the result.
// An empty document yields the defaults.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}

	normalize(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:      defaultPort,
		Env:       defaultEnv,
		MXTimeout: defaultMXTimeout,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Mail: MailConfig{
			From:      defaultMailFrom,
			Transport: defaultMailTransport,
			Timeout:   defaultMailTimeout,
			SMTP:      SMTPConfig{Port: defaultSMTPPort},
		},
		Delivery: DeliveryConfig{
			SendHour:    defaultSendHour,
			Schedule:    defaultSchedule,
			Concurrency: defaultConcurrency,
			LockTTL:     defaultLockTTL,
		},
		Content: ContentConfig{
			Timeout:      defaultContentTimeout,
			LookbackDays: defaultLookbackDays,
			Fallback:     FallbackConfig{Fact: defaultFallbackFact},
		},
	}
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Delivery.SendHour < 0 || c.Delivery.SendHour > 23 {
		return fmt.Errorf("invalid delivery.send_hour %d, expected 0-23", c.Delivery.SendHour)
	}
	if c.Delivery.Concurrency < 1 {
		return fmt.Errorf("invalid delivery.concurrency %d, expected >= 1", c.Delivery.Concurrency)
	}
	switch c.Mail.Transport {
	case TransportLog, TransportSMTP, TransportResend:
	default:
		return fmt.Errorf("invalid mail.transport %q, expected log, smtp or resend", c.Mail.Transport)
	}
	if c.Mail.Transport == TransportSMTP && c.Mail.SMTP.Host == "" {
		return errors.New("mail.smtp.host is required for the smtp transport")
	}
	if c.Mail.Transport == TransportResend && c.Mail.Resend.APIKey == "" {
		return errors.New("mail.resend.api_key is required for the resend transport")
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		if cfg.IsDev() {
			cfg.BaseURL = defaultDevBaseURL
		} else {
			cfg.BaseURL = defaultProdBaseURL
		}
	}
	cfg.AdminToken = strings.TrimSpace(cfg.AdminToken)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	if cfg.MXTimeout <= 0 {
		cfg.MXTimeout = defaultMXTimeout
	}

	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	if v := strings.TrimSpace(cfg.DSN); v != "" {
		cfg.DSN = v
	} else {
		cfg.DSN = cfg.Database.DSNValue()
	}
	if v := strings.TrimSpace(cfg.RedisURL); v != "" {
		cfg.RedisURL = normalizeRedisRawURL(v)
	} else {
		cfg.RedisURL = cfg.Redis.URLValue()
	}

	cfg.Mail = normalizeMailConfig(cfg.Mail)
	cfg.Delivery = normalizeDeliveryConfig(cfg.Delivery)
	cfg.Content = normalizeContentConfig(cfg.Content)
	cfg.Alert.OperatorEmail = strings.TrimSpace(cfg.Alert.OperatorEmail)
	cfg.Alert.BarkKey = strings.TrimSpace(cfg.Alert.BarkKey)
	cfg.Alert.BarkServer = strings.TrimRight(strings.TrimSpace(cfg.Alert.BarkServer), "/")
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)

	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultDBPort
	}
	if cfg.User == "" {
		cfg.User = defaultDBUser
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeMailConfig(cfg MailConfig) MailConfig {
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.From == "" {
		cfg.From = defaultMailFrom
	}
	cfg.ReplyTo = strings.TrimSpace(cfg.ReplyTo)
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport == "" {
		cfg.Transport = defaultMailTransport
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMailTimeout
	}
	cfg.SMTP.Host = strings.TrimSpace(cfg.SMTP.Host)
	cfg.SMTP.User = strings.TrimSpace(cfg.SMTP.User)
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = defaultSMTPPort
	}
	cfg.Resend.APIKey = strings.TrimSpace(cfg.Resend.APIKey)
	return cfg
}

func normalizeDeliveryConfig(cfg DeliveryConfig) DeliveryConfig {
	cfg.Schedule = strings.Join(strings.Fields(cfg.Schedule), " ")
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return cfg
}

func normalizeContentConfig(cfg ContentConfig) ContentConfig {
	cfg.FlickrAPIKey = strings.TrimSpace(cfg.FlickrAPIKey)
	cfg.FlickrURL = strings.TrimSpace(cfg.FlickrURL)
	cfg.FactFeedURL = strings.TrimSpace(cfg.FactFeedURL)
	if cfg.FlickrURL == "" {
		cfg.FlickrURL = defaultFlickrURL
	}
	cfg.Fallback.PhotoURL = strings.TrimSpace(cfg.Fallback.PhotoURL)
	cfg.Fallback.AttributionURL = strings.TrimSpace(cfg.Fallback.AttributionURL)
	cfg.Fallback.AttributionName = strings.TrimSpace(cfg.Fallback.AttributionName)
	cfg.Fallback.Fact = strings.TrimSpace(cfg.Fallback.Fact)
	if cfg.Fallback.Fact == "" {
		cfg.Fallback.Fact = defaultFallbackFact
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultContentTimeout
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

// DSNValue builds a go-sql-driver/mysql DSN from the discrete fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			params.Set(k, v)
		}
	}
	if params.Get("charset") == "" {
		params.Set("charset", c.Charset)
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", strconv.FormatBool(c.ParseTime))
	}
	if params.Get("loc") == "" {
		params.Set("loc", c.Loc)
	}

	auth := ""
	if c.User != "" || c.Password != "" {
		auth = c.User
		if c.Password != "" {
			auth += ":" + c.Password
		}
		auth += "@"
	}
	return fmt.Sprintf("%stcp(%s)/%s?%s", auth, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name, params.Encode())
}

func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}
	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	switch {
	case c.Username != "" && c.Password != "":
		u.User = neturl.UserPassword(c.Username, c.Password)
	case c.Username != "":
		u.User = neturl.User(c.Username)
	case c.Password != "":
		u.User = neturl.UserPassword("", c.Password)
	}
	return u.String()
}

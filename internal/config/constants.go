package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort        = 7887
	defaultEnv         = "development"
	defaultDevBaseURL  = "http://localhost:7887"
	defaultProdBaseURL = "http://dailyhi.labnotes.org"
	defaultDBHost      = "127.0.0.1"
	defaultDBPort      = 3306
	defaultDBUser      = "root"
	defaultDBPassword  = "password"
	defaultDBName      = "dailyhi"
	defaultDBCharset   = "utf8mb4"
	defaultDBLoc       = "UTC"
	defaultRedisHost   = "localhost"
	defaultRedisPort   = 6379
	defaultRedisDB     = 0

	defaultMailFrom      = "dailyhi@labnotes.org"
	defaultMailTransport = TransportLog
	defaultSMTPPort      = 587
	defaultMailTimeout   = 15 * time.Second

	defaultSendHour    = 6
	defaultSchedule    = "0 * * * *"
	defaultConcurrency = 4
	defaultLockTTL     = 55 * time.Minute

	defaultContentTimeout = 10 * time.Second
	defaultLookbackDays   = 7
	defaultMXTimeout      = 5 * time.Second

	defaultFlickrURL    = "https://api.flickr.com/services/rest/"
	defaultFallbackFact = "Honey never spoils. Pots of it found in ancient Egyptian tombs were still edible."
)

// Mail transports understood by mail.New.
const (
	TransportLog    = "log"
	TransportSMTP   = "smtp"
	TransportResend = "resend"
)

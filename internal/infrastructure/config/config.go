package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Billing   BillingConfig
	Channels  ChannelsConfig
	Dispatch  DispatchConfig
	Realtime  RealtimeConfig
	USSD      USSDConfig
	Storage   StorageConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SchedulerConfig holds the background job runner configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	ShutdownTimeout   time.Duration
	SweepInterval     time.Duration // dunning sweep cadence
	ReconcileInterval time.Duration // payout reconciliation cadence
}

// BillingConfig holds invoice generation settings
type BillingConfig struct {
	DueDay             int           // day of month invoices fall due
	EarlyReminderDays  int           // days before due date for the early SMS
	FinalNoticeDays    int           // days past due for the final SMS
	FieldDispatchAfter time.Duration // grace after VOICE_ATTEMPTED before field dispatch
	Currency           string
}

// ProviderConfig holds one outbound provider endpoint
type ProviderConfig struct {
	Name     string
	BaseURL  string
	APIKey   string
	SenderID string
}

// ChannelsConfig holds outbound channel provider settings. Each channel has
// one primary provider and at most one fallback.
type ChannelsConfig struct {
	HTTPTimeout      time.Duration
	SMSPrimary       ProviderConfig
	SMSFallback      ProviderConfig
	Voice            ProviderConfig
	VoiceCallbackURL string
	VoiceSecret      string // HMAC key for the status callback URL
	WhatsApp         ProviderConfig
	Push             ProviderConfig
	MoMo             ProviderConfig
	MoMoPayCode      string // market dial string, {account} is substituted
	StripeSecret     string // webhook signing secret
	WhatsAppSecret   string
}

// DispatchConfig holds collector routing settings
type DispatchConfig struct {
	MaxRadiusKm       float64
	LocationStaleness time.Duration
	VoiceDeadline     time.Duration
	PayoutStaleAfter  time.Duration
}

// RealtimeConfig holds websocket fan-out settings
type RealtimeConfig struct {
	SendBufferSize int // per-connection outbound buffer
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// USSDConfig holds USSD session settings
type USSDConfig struct {
	SessionTTL time.Duration
}

// StorageConfig holds object storage settings for rendered invoices
type StorageConfig struct {
	Driver    string // s3 or local
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for S3-compatible stores
	AccessKey string
	SecretKey string
	LocalDir  string // used by the local driver
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with HP_ prefix (e.g., HP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("HP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
			ShutdownTimeout:   v.GetDuration("scheduler.shutdown_timeout"),
			SweepInterval:     v.GetDuration("scheduler.sweep_interval"),
			ReconcileInterval: v.GetDuration("scheduler.reconcile_interval"),
		},
		Billing: BillingConfig{
			DueDay:             v.GetInt("billing.due_day"),
			EarlyReminderDays:  v.GetInt("billing.early_reminder_days"),
			FinalNoticeDays:    v.GetInt("billing.final_notice_days"),
			FieldDispatchAfter: v.GetDuration("billing.field_dispatch_after"),
			Currency:           v.GetString("billing.currency"),
		},
		Channels: ChannelsConfig{
			HTTPTimeout:      v.GetDuration("channels.http_timeout"),
			SMSPrimary:       providerAt(v, "channels.sms_primary"),
			SMSFallback:      providerAt(v, "channels.sms_fallback"),
			Voice:            providerAt(v, "channels.voice"),
			VoiceCallbackURL: v.GetString("channels.voice_callback_url"),
			VoiceSecret:      v.GetString("channels.voice_secret"),
			WhatsApp:         providerAt(v, "channels.whatsapp"),
			Push:             providerAt(v, "channels.push"),
			MoMo:             providerAt(v, "channels.momo"),
			MoMoPayCode:      v.GetString("channels.momo_pay_code"),
			StripeSecret:     v.GetString("channels.stripe_secret"),
			WhatsAppSecret:   v.GetString("channels.whatsapp_secret"),
		},
		Dispatch: DispatchConfig{
			MaxRadiusKm:       v.GetFloat64("dispatch.max_radius_km"),
			LocationStaleness: v.GetDuration("dispatch.location_staleness"),
			VoiceDeadline:     v.GetDuration("dispatch.voice_deadline"),
			PayoutStaleAfter:  v.GetDuration("dispatch.payout_stale_after"),
		},
		Realtime: RealtimeConfig{
			SendBufferSize: v.GetInt("realtime.send_buffer_size"),
			WriteTimeout:   v.GetDuration("realtime.write_timeout"),
			PingInterval:   v.GetDuration("realtime.ping_interval"),
		},
		USSD: USSDConfig{
			SessionTTL: v.GetDuration("ussd.session_ttl"),
		},
		Storage: StorageConfig{
			Driver:    v.GetString("storage.driver"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			LocalDir:  v.GetString("storage.local_dir"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func providerAt(v *viper.Viper, key string) ProviderConfig {
	return ProviderConfig{
		Name:     v.GetString(key + ".name"),
		BaseURL:  v.GetString(key + ".base_url"),
		APIKey:   v.GetString(key + ".api_key"),
		SenderID: v.GetString(key + ".sender_id"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "highprosper-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "highprosper"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "highprosper-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
	if cfg.Scheduler.ShutdownTimeout == 0 {
		cfg.Scheduler.ShutdownTimeout = 300 * time.Second
	}
	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = 24 * time.Hour
	}
	if cfg.Scheduler.ReconcileInterval == 0 {
		cfg.Scheduler.ReconcileInterval = time.Hour
	}
	if cfg.Billing.DueDay == 0 {
		cfg.Billing.DueDay = 25
	}
	if cfg.Billing.EarlyReminderDays == 0 {
		cfg.Billing.EarlyReminderDays = 7
	}
	if cfg.Billing.FinalNoticeDays == 0 {
		cfg.Billing.FinalNoticeDays = 3
	}
	if cfg.Billing.FieldDispatchAfter == 0 {
		cfg.Billing.FieldDispatchAfter = 24 * time.Hour
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "RWF"
	}
	if cfg.Channels.HTTPTimeout == 0 {
		cfg.Channels.HTTPTimeout = 10 * time.Second
	}
	if cfg.Channels.MoMoPayCode == "" {
		cfg.Channels.MoMoPayCode = "*182*8*1*{account}#"
	}
	if cfg.Dispatch.MaxRadiusKm == 0 {
		cfg.Dispatch.MaxRadiusKm = 15
	}
	if cfg.Dispatch.LocationStaleness == 0 {
		cfg.Dispatch.LocationStaleness = 15 * time.Minute
	}
	if cfg.Dispatch.VoiceDeadline == 0 {
		cfg.Dispatch.VoiceDeadline = 10 * time.Minute
	}
	if cfg.Dispatch.PayoutStaleAfter == 0 {
		cfg.Dispatch.PayoutStaleAfter = time.Hour
	}
	if cfg.Realtime.SendBufferSize == 0 {
		cfg.Realtime.SendBufferSize = 1000
	}
	if cfg.Realtime.WriteTimeout == 0 {
		cfg.Realtime.WriteTimeout = 10 * time.Second
	}
	if cfg.Realtime.PingInterval == 0 {
		cfg.Realtime.PingInterval = 30 * time.Second
	}
	if cfg.USSD.SessionTTL == 0 {
		cfg.USSD.SessionTTL = 300 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./data/invoices"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Dispatch.MaxRadiusKm <= 0 {
		return fmt.Errorf("dispatch.max_radius_km must be positive")
	}
	if c.Billing.DueDay < 1 || c.Billing.DueDay > 28 {
		return fmt.Errorf("billing.due_day must be between 1 and 28")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Channels.SMSPrimary.BaseURL == "" {
			return fmt.Errorf("channels.sms_primary.base_url is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

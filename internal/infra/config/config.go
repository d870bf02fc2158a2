package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App        AppSettings        `mapstructure:"app"`
	Postgres   PostgresSettings   `mapstructure:"postgres"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	Telemetry  TelemetrySettings  `mapstructure:"telemetry"`
	AbuseGuard AbuseGuardSettings `mapstructure:"abuse_guard"`
	Argon2     Argon2Settings     `mapstructure:"argon2"`
	Sessions   SessionSettings    `mapstructure:"sessions"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN renders the pgx connection string.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Addr renders the host:port pair for the redis client.
func (r RedisSettings) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RedisSettings configures the Redis connection shared by the abuse guard
// and the session-change broadcast channel.
type RedisSettings struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	DB               int    `mapstructure:"db"`
	Password         string `mapstructure:"password"`
	TLSEnabled       bool   `mapstructure:"tls_enabled"`
	GuardKeyPrefix   string `mapstructure:"guard_key_prefix"`
	BroadcastChannel string `mapstructure:"broadcast_channel"`
}

// KafkaSettings configures the lifecycle-event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AbuseGuardSettings tunes the per-scope attempt windows and block durations.
type AbuseGuardSettings struct {
	WindowDuration        time.Duration `mapstructure:"window_duration"`
	BlockDuration         time.Duration `mapstructure:"block_duration"`
	LoginIPMaxAttempts    int           `mapstructure:"login_ip_max_attempts"`
	LoginEmailMaxAttempts int           `mapstructure:"login_email_max_attempts"`
	RegisterMaxAttempts   int           `mapstructure:"register_max_attempts"`
	ForgotMaxAttempts     int           `mapstructure:"forgot_max_attempts"`
	ResetMaxAttempts      int           `mapstructure:"reset_max_attempts"`
	ChangeMaxAttempts     int           `mapstructure:"change_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type TelemetrySettings struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	ServiceName    string `mapstructure:"service_name"`
}

// SessionSettings controls server-side session retention.
type SessionSettings struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ResetTokenTTL   time.Duration `mapstructure:"reset_token_ttl"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.guard_key_prefix",
		"redis.broadcast_channel",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"telemetry.metrics_enabled",
		"telemetry.service_name",
		"abuse_guard.window_duration",
		"abuse_guard.block_duration",
		"abuse_guard.login_ip_max_attempts",
		"abuse_guard.login_email_max_attempts",
		"abuse_guard.register_max_attempts",
		"abuse_guard.forgot_max_attempts",
		"abuse_guard.reset_max_attempts",
		"abuse_guard.change_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"sessions.cleanup_interval",
		"sessions.reset_token_ttl",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required (AUTH_JWT_SECRET)")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "playshelf-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "playshelf")
	v.SetDefault("postgres.password", "playshelf_password")
	v.SetDefault("postgres.database", "playshelf")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.guard_key_prefix", "guard")
	v.SetDefault("redis.broadcast_channel", "playshelf:session_changes")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "playshelf")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.issuer", "playshelf-auth")
	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "720h")

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.service_name", "playshelf-auth")

	v.SetDefault("abuse_guard.window_duration", "15m")
	v.SetDefault("abuse_guard.block_duration", "15m")
	v.SetDefault("abuse_guard.login_ip_max_attempts", 10)
	v.SetDefault("abuse_guard.login_email_max_attempts", 5)
	v.SetDefault("abuse_guard.register_max_attempts", 3)
	v.SetDefault("abuse_guard.forgot_max_attempts", 3)
	v.SetDefault("abuse_guard.reset_max_attempts", 5)
	v.SetDefault("abuse_guard.change_max_attempts", 5)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("sessions.cleanup_interval", "1h")
	v.SetDefault("sessions.reset_token_ttl", "30m")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete configuration for the grievance engine service
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	SLA           SLAConfig           `mapstructure:"sla"`
	Assignment    AssignmentConfig    `mapstructure:"assignment"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// KafkaConfig contains Kafka producer configuration for lifecycle events
type KafkaConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Brokers []string     `mapstructure:"brokers"`
	Topics  TopicsConfig `mapstructure:"topics"`
}

// TopicsConfig contains the lifecycle event topics
type TopicsConfig struct {
	ComplaintSubmitted string `mapstructure:"complaint_submitted"`
	ComplaintEscalated string `mapstructure:"complaint_escalated"`
	ComplaintResolved  string `mapstructure:"complaint_resolved"`
	ComplaintReviewed  string `mapstructure:"complaint_reviewed"`
}

// SLAConfig contains category-keyed SLA durations and the supervisor review window.
// Durations are configuration, not engine logic; unknown categories fall back to
// DefaultHours.
type SLAConfig struct {
	CategoryHours map[string]int `mapstructure:"category_hours"`
	DefaultHours  int            `mapstructure:"default_hours"`
	ReviewWindow  time.Duration  `mapstructure:"review_window"`
	AutoEscalate  bool           `mapstructure:"auto_escalate"`
}

// Deadline returns the SLA duration for a category. Category matching is
// case-insensitive.
func (s SLAConfig) Deadline(category string) time.Duration {
	for name, hours := range s.CategoryHours {
		if strings.EqualFold(name, category) {
			return time.Duration(hours) * time.Hour
		}
	}
	return time.Duration(s.DefaultHours) * time.Hour
}

// AssignmentConfig contains assignment resolver configuration
type AssignmentConfig struct {
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`
	SnapshotCleanup time.Duration `mapstructure:"snapshot_cleanup"`
}

// SchedulerConfig contains escalation scheduler configuration
type SchedulerConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	SLAScanSchedule        string `mapstructure:"sla_scan_schedule"`
	SupervisorScanSchedule string `mapstructure:"supervisor_scan_schedule"`
	ScanBatchSize          int    `mapstructure:"scan_batch_size"`
}

// NotificationsConfig contains notification dispatch configuration
type NotificationsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	WorkerCount     int           `mapstructure:"worker_count"`
	QueueSize       int           `mapstructure:"queue_size"`
	WebhookURL      string        `mapstructure:"webhook_url"`
	WebhookTimeout  time.Duration `mapstructure:"webhook_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Load loads configuration from environment variables and config files
func Load(path string) (Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/grievance-engine")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GRIEVANCE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// General
	viper.SetDefault("environment", "development")
	viper.SetDefault("debug", false)

	// Server
	viper.SetDefault("server.http_port", 8086)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "civicgrid_grievance")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "file://migrations")

	// Kafka
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topics.complaint_submitted", "complaint-submitted")
	viper.SetDefault("kafka.topics.complaint_escalated", "complaint-escalated")
	viper.SetDefault("kafka.topics.complaint_resolved", "complaint-resolved")
	viper.SetDefault("kafka.topics.complaint_reviewed", "complaint-reviewed")

	// SLA durations per category (hours)
	viper.SetDefault("sla.category_hours", map[string]int{
		"Streetlight":    48,
		"Critical Power": 24,
		"Roads":          168,
		"Water Supply":   72,
		"Drainage":       96,
	})
	viper.SetDefault("sla.default_hours", 120)
	viper.SetDefault("sla.review_window", "24h")
	viper.SetDefault("sla.auto_escalate", true)

	// Assignment
	viper.SetDefault("assignment.snapshot_ttl", "30s")
	viper.SetDefault("assignment.snapshot_cleanup", "5m")

	// Scheduler
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.sla_scan_schedule", "@every 1m")
	viper.SetDefault("scheduler.supervisor_scan_schedule", "@every 1m")
	viper.SetDefault("scheduler.scan_batch_size", 200)

	// Notifications
	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.worker_count", 4)
	viper.SetDefault("notifications.queue_size", 256)
	viper.SetDefault("notifications.webhook_timeout", "30s")
	viper.SetDefault("notifications.max_retries", 3)
	viper.SetDefault("notifications.rate_limit_per_min", 120)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

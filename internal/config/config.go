package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Stripe     StripeConfig
	Scheduler  SchedulerConfig
	Billing    BillingConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type SchedulerConfig struct {
	// PollInterval is how often the worker scans for due jobs
	PollInterval time.Duration
	// MaxReminderJobs bounds the numbered reminder jobs per invoice so
	// cancellation sweeps do not need a persisted job index
	MaxReminderJobs int
	// MaxAttempts is the job system's own retry budget per job
	MaxAttempts int
	// OperationTimeout bounds the DB transaction plus the scheduling call of a
	// billing request
	OperationTimeout time.Duration
}

type BillingConfig struct {
	// DueDays is how long after sending an invoice becomes overdue
	DueDays int
	// ReminderDaysBefore is how many days before the due date the pre-due
	// reminder fires
	ReminderDaysBefore int
}

type SentryConfig struct {
	DSN         string
	Environment string
	Enabled     bool
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Load .env for local development, ignore if missing
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gymlane")

	v.SetEnvPrefix("GYMLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("scheduler.pollinterval", 15*time.Second)
	v.SetDefault("scheduler.maxreminderjobs", 3)
	v.SetDefault("scheduler.maxattempts", 5)
	v.SetDefault("scheduler.operationtimeout", 30*time.Second)
	v.SetDefault("billing.duedays", 7)
	v.SetDefault("billing.reminderdaysbefore", 2)
	v.SetDefault("sentry.samplerate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or tests without a config file
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Scheduler: SchedulerConfig{
			PollInterval:     15 * time.Second,
			MaxReminderJobs:  3,
			MaxAttempts:      5,
			OperationTimeout: 30 * time.Second,
		},
		Billing: BillingConfig{
			DueDays:            7,
			ReminderDaysBefore: 2,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables notification publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler job intervals
	OverdueSweepInterval time.Duration
	RecurringInterval    time.Duration
	AutoPayInterval      time.Duration
	BudgetAlertInterval  time.Duration

	// Budget alert thresholds, in percent
	WarningThreshold float64
	DangerThreshold  float64
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbook.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		OverdueSweepInterval: getEnvDuration("OVERDUE_SWEEP_INTERVAL", time.Hour),
		RecurringInterval:    getEnvDuration("RECURRING_INTERVAL", time.Hour),
		AutoPayInterval:      getEnvDuration("AUTOPAY_INTERVAL", time.Hour),
		BudgetAlertInterval:  getEnvDuration("BUDGET_ALERT_INTERVAL", 6*time.Hour),

		WarningThreshold: getEnvFloat("WARNING_THRESHOLD", 80),
		DangerThreshold:  getEnvFloat("DANGER_THRESHOLD", 90),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for name, interval := range map[string]time.Duration{
		"overdue sweep interval": c.OverdueSweepInterval,
		"recurring interval":     c.RecurringInterval,
		"auto-pay interval":      c.AutoPayInterval,
		"budget alert interval":  c.BudgetAlertInterval,
	} {
		if interval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be at least 1 second", name, interval))
		} else if interval > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be at most 24 hours", name, interval))
		}
	}

	if c.WarningThreshold <= 0 || c.WarningThreshold >= 100 {
		errors = append(errors, fmt.Sprintf("invalid warning threshold %.1f: must be between 0 and 100", c.WarningThreshold))
	}
	if c.DangerThreshold <= c.WarningThreshold || c.DangerThreshold > 100 {
		errors = append(errors, fmt.Sprintf("invalid danger threshold %.1f: must be above the warning threshold and at most 100", c.DangerThreshold))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

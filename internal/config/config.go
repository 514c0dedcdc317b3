package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	WeeklyPath  string `env:"WEEKLY_PATH"`
	MonthlyPath string `env:"MONTHLY_PATH"`
	AnnualPath  string `env:"ANNUAL_PATH"`
	StationID   string `env:"STATION_ID"`

	MissingPolicy domain.MissingPolicy `env:"MISSING_POLICY"`
	Criteria1Min  float64              `env:"CRITERIA1_MIN" validate:"gte=0,lte=100"`
	Criteria2Min  float64              `env:"CRITERIA2_MIN" validate:"gte=0,lte=100"`
	Criteria3Min  float64              `env:"CRITERIA3_MIN" validate:"gte=0,lte=100"`

	ReportPath string `env:"REPORT_PATH" validate:"omitempty,endswith=.xlsx"`

	BatchSize       int           `env:"BATCH_SIZE" validate:"gt=0"`
	HTTPAddr        string        `env:"HTTP_ADDR" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string        `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// Kafka sink configuration.
	KafkaEnabled   bool     `env:"KAFKA_ENABLED"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" validate:"required_if=KafkaEnabled true"`
	KafkaSinkTopic string   `env:"KAFKA_SINK_TOPIC" validate:"required_if=KafkaEnabled true"`

	// InfluxDB sink configuration. The sink is enabled when InfluxURL is set.
	InfluxURL    string `env:"INFLUX_URL" validate:"omitempty,url"`
	InfluxToken  string `env:"INFLUX_TOKEN"`
	InfluxOrg    string `env:"INFLUX_ORG" validate:"required_with=InfluxURL"`
	InfluxBucket string `env:"INFLUX_BUCKET" validate:"required_with=InfluxURL"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	policy, err := domain.ParseMissingPolicy(os.Getenv("MISSING_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid MISSING_POLICY: %w", err)
	}

	var thresholds [3]float64
	defaults := [3]float64{
		domain.DefaultCriteriaThresholds.C1,
		domain.DefaultCriteriaThresholds.C2,
		domain.DefaultCriteriaThresholds.C3,
	}
	for i := range thresholds {
		name := fmt.Sprintf("CRITERIA%d_MIN", i+1)
		if thresholds[i], err = parseFloatEnv(name, defaults[i]); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		WeeklyPath:  os.Getenv("WEEKLY_PATH"),
		MonthlyPath: os.Getenv("MONTHLY_PATH"),
		AnnualPath:  os.Getenv("ANNUAL_PATH"),
		StationID:   strings.TrimSpace(os.Getenv("STATION_ID")),

		MissingPolicy: policy,
		Criteria1Min:  thresholds[0],
		Criteria2Min:  thresholds[1],
		Criteria3Min:  thresholds[2],

		ReportPath: os.Getenv("REPORT_PATH"),

		BatchSize:       batchSize,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "nitrogen-deposition"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUX_ORG"),
		InfluxBucket: os.Getenv("INFLUX_BUCKET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Thresholds returns the annual completeness limits as a domain value.
func (c *Config) Thresholds() domain.CriteriaThresholds {
	return domain.CriteriaThresholds{C1: c.Criteria1Min, C2: c.Criteria2Min, C3: c.Criteria3Min}
}

// InfluxEnabled reports whether the InfluxDB sink is configured.
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != ""
}

// Validate checks field constraints. Errors name the environment variable
// that holds the offending value.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("invalid %s (%s)", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report env variable names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func parseFloatEnv(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile     string
	weeklyPath  string
	monthlyPath string
	annualPath  string
	stationID   string
	cfg         *config.Config
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deposition",
		Short: "Nitrogen deposition ETL for station wet-deposition tables",
		Long: `deposition reads weekly, monthly and annual wet-deposition tables for one
or more monitoring stations, converts ammonium and nitrate concentrations into
total inorganic nitrogen deposition (kg N/ha) and compares the weekly and
monthly roll-ups with the published annual values.

Commands:
  - run:      run the pipeline once and print the comparison
  - serve:    run the pipeline, then serve health, metrics and /comparison
  - validate: check the input files without converting them

Configuration precedence (highest to lowest):
  1. CLI flags (--weekly, --monthly, --annual, --station)
  2. Environment variables
  3. .env file in the working directory (or --env-file)
  4. Built-in defaults

Environment Variables:
    WEEKLY_PATH, MONTHLY_PATH, ANNUAL_PATH   input files (.csv or .xlsx)
    STATION_ID                              keep only this station
    MISSING_POLICY                          exclude (default) or propagate
    CRITERIA1_MIN, CRITERIA2_MIN, CRITERIA3_MIN
                                            annual completeness thresholds (%)
    REPORT_PATH                             write an .xlsx report
    KAFKA_ENABLED, KAFKA_BROKERS, KAFKA_SINK_TOPIC
    INFLUX_URL, INFLUX_TOKEN, INFLUX_ORG, INFLUX_BUCKET
    LOG_LEVEL, LOG_FORMAT, BATCH_SIZE, HTTP_ADDR, SHUTDOWN_TIMEOUT`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}

			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			applyFlagOverrides(loaded)
			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&weeklyPath, "weekly", "",
		"weekly table (.csv or .xlsx), overrides WEEKLY_PATH")
	rootCmd.PersistentFlags().StringVar(&monthlyPath, "monthly", "",
		"monthly table (.csv or .xlsx), overrides MONTHLY_PATH")
	rootCmd.PersistentFlags().StringVar(&annualPath, "annual", "",
		"annual table (.csv or .xlsx), overrides ANNUAL_PATH")
	rootCmd.PersistentFlags().StringVar(&stationID, "station", "",
		"keep only rows for this station, overrides STATION_ID")

	rootCmd.AddCommand(getRunCmd())
	rootCmd.AddCommand(getServeCmd())
	rootCmd.AddCommand(getValidateCmd())

	return rootCmd
}

// loadEnvFile loads path into the environment. Variables already set win, and
// a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func applyFlagOverrides(c *config.Config) {
	if weeklyPath != "" {
		c.WeeklyPath = weeklyPath
	}
	if monthlyPath != "" {
		c.MonthlyPath = monthlyPath
	}
	if annualPath != "" {
		c.AnnualPath = annualPath
	}
	if stationID != "" {
		c.StationID = stationID
	}
}

// getConfig returns the loaded configuration (for use in subcommands)
func getConfig() *config.Config {
	return cfg
}

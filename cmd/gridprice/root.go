package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/config"
	"github.com/jgoulah/gridprice/internal/database"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gridprice",
	Short: "Reprice Smart Meter Texas usage against Power to Choose plans",
	Long: `GridPrice imports daily electricity usage exported from Smart Meter Texas,
syncs retail plans from the Power to Choose catalog, and estimates what your
own usage history would have cost under each plan. Data is kept in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default is info)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path, flag first then config
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetDatabase()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// newLogger builds the stderr console logger
func newLogger(cfg *config.Config) zerolog.Logger {
	levelName := logLevel
	if levelName == "" {
		levelName = cfg.GetLogLevel()
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// setup loads config, logger and database for a command
func setup() (*config.Config, zerolog.Logger, *database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("loading config: %w", err)
	}
	log := newLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return nil, log, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, log, db, nil
}

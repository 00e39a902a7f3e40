package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/catalog"
	"github.com/jgoulah/gridprice/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := &config.Config{
		Database: "data.db",
		LogLevel: "info",
		Catalog: config.CatalogConfig{
			APIURL:         catalog.DefaultAPIURL,
			CSVURL:         catalog.DefaultCSVURL,
			PageSize:       catalog.DefaultPageSize,
			TimeoutSeconds: int(catalog.DefaultTimeout.Seconds()),
		},
		MQTT: config.MQTTConfig{
			Broker:      "localhost:1883",
			TopicPrefix: "gridprice",
		},
		HomeAssistant: config.HAConfig{
			URL:      "http://homeassistant.local:8123",
			EntityID: "sensor.cheapest_electricity_plan",
		},
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", path)
	return nil
}

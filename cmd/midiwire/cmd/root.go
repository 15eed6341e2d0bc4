/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/midiwire/pkg/config"
	"github.com/ssargent/midiwire/pkg/di"
	"github.com/ssargent/midiwire/pkg/packet"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "midiwire",
	Short: "midiwire - MIDI packet list toolkit",
	Long: `midiwire builds, inspects and routes MIDI packet lists in the host's
native wire format, stores them as clips and serves them over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/midiwire/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory (overrides the config file)")
}

// loadConfig reads the config file named by --config, falling back to the
// defaults when it does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// newContainer builds the service container from the loaded config
func newContainer(cmd *cobra.Command) (*di.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(cfg, nil)
}

// addLayoutFlags registers --alignment and --byte-order on cmd
func addLayoutFlags(cmd *cobra.Command) {
	cmd.Flags().String("alignment", "", "Packet alignment: native, 1 or 4 (default from config)")
	cmd.Flags().String("byte-order", "", "Byte order: native, little or big (default from config)")
}

// resolveLayout combines the layout flags with the configured layout
func resolveLayout(cmd *cobra.Command) (packet.Layout, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return packet.Layout{}, err
	}

	alignment, _ := cmd.Flags().GetString("alignment")
	if alignment == "" {
		alignment = cfg.Layout.Alignment
	}
	byteOrder, _ := cmd.Flags().GetString("byte-order")
	if byteOrder == "" {
		byteOrder = cfg.Layout.ByteOrder
	}
	return config.ParseLayout(alignment, byteOrder)
}

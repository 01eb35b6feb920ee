package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample ScribeFS configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/scribefs/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  scribefs init

  # Initialize with custom path
  scribefs init --config /etc/scribefs/config.yaml

  # Force overwrite existing config
  scribefs init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start a name node:    scribefs namenode")
	fmt.Println("  3. Start a storage node: scribefs storagenode --id ss-1")
	return nil
}

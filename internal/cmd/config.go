package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jordanella.com/reward-pinger/internal/config"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
	RunE:  requireSubcommand,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Long: `Write a config file with default values.

The file is written as YAML unless --format ini is given or the path ends
in .ini. Secrets (telegram token and chat id) are better kept in .env.

Examples:
  pinger config init
  pinger config init --format ini settings.ini`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&configFormat, "format", "", "yaml or ini (default from the file extension)")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\n%s", cmd.UsageString())
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	format := configFormat
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	if format == "" {
		format = "yaml"
		if filepath.Ext(path) == ".ini" {
			format = "ini"
		}
	}
	if path == "" {
		path = "config." + format
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	var err error
	switch format {
	case "yaml", "yml":
		err = config.SaveToYAML(cfg, path)
	case "ini":
		err = config.SaveToINI(cfg, path)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s; set api.base_url before running\n", path)
	return nil
}

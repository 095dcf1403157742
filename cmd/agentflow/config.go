package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/agentflow/internal/config"
	"github.com/ashutoshrp06/agentflow/internal/ui"
)

const defaultConfigFile = "agentflow.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long:  "View the effective configuration or create a default config file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configInit {
			return initConfig(os.Stdout, defaultConfigFile)
		}
		if configShow {
			return showConfig(os.Stdout)
		}
		return nil
	},
}

var (
	configInit bool
	configShow bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create "+defaultConfigFile+" with default settings")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
}

func initConfig(out io.Writer, path string) error {
	styles := ui.DefaultStyles()

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, styles.Label.Render(path+" already exists. Use --show to view it."))
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintln(out, styles.Passed.Render("Created "+path+" with default settings."))
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - the model endpoint, model and API key")
	fmt.Fprintln(out, "  - agent cycle limit and workspace")
	fmt.Fprintln(out, "  - workflow confidence threshold")
	fmt.Fprintln(out, "  - research API endpoints and keys")
	return nil
}

func showConfig(out io.Writer) error {
	styles := ui.DefaultStyles()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Source == "" {
		fmt.Fprintln(out, styles.Label.Render("No config file found. Showing defaults and environment:\n"))
	} else {
		fmt.Fprintln(out, styles.Heading.Render("Current Configuration ("+cfg.Source+"):"))
	}

	// Keys are masked before printing.
	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, styles.StatusText.Render("Config file locations (in order of precedence):"))
	for i, p := range config.SearchPaths() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p)
	}
	fmt.Fprintln(out, styles.StatusText.Render("Environment variables override files, e.g. "+config.EnvPrefix+"_LLM_MODEL."))
	return nil
}

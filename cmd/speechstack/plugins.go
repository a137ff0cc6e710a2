package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chriscow/speechstack-go/internal/config"
	"github.com/chriscow/speechstack-go/pkg/plugin"
)

var pluginCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Plugin management commands",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered VAD and STT plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		out := cmd.OutOrStdout()

		plugins := plugin.List(kind)
		if len(plugins) == 0 {
			if kind == "" {
				fmt.Fprintln(out, "No plugins registered")
			} else {
				fmt.Fprintf(out, "No plugins registered for kind: %s\n", kind)
			}
			return nil
		}

		fmt.Fprintf(out, "%-6s %-12s %-8s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
		for _, p := range plugins {
			version := p.Version
			if version == "" {
				version = "N/A"
			}
			description := p.Description
			if description == "" {
				description = "No description"
			}
			fmt.Fprintf(out, "%-6s %-12s %-8s %s\n", p.Kind, p.Name, version, description)
		}
		return nil
	},
}

var pluginDownloadCmd = &cobra.Command{
	Use:   "download-files",
	Short: "Download missing model files for all registered plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger(config.Default().Log)

		var downloaded, failed int
		for _, p := range plugin.List("") {
			if p.Downloader == nil {
				continue
			}
			logger.Info("Downloading model files for plugin",
				slog.String("kind", p.Kind),
				slog.String("name", p.Name))
			if err := p.Downloader.Download(); err != nil {
				logger.Error("Failed to download model files",
					slog.String("kind", p.Kind),
					slog.String("name", p.Name),
					slog.String("error", err.Error()))
				failed++
				continue
			}
			downloaded++
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded model files for %d plugins\n", downloaded)
		if failed > 0 {
			return fmt.Errorf("failed to download model files for %d plugins", failed)
		}
		return nil
	},
}

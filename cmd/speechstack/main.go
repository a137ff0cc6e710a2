package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chriscow/speechstack-go/internal/config"
	_ "github.com/chriscow/speechstack-go/pkg/plugin/fake"       // Import to register fake plugins
	_ "github.com/chriscow/speechstack-go/pkg/plugin/openai"     // Import to register OpenAI plugin
	_ "github.com/chriscow/speechstack-go/pkg/plugin/silero"     // Import to register silero plugin
	_ "github.com/chriscow/speechstack-go/pkg/plugin/spokestack" // Import to register Spokestack plugin
	_ "github.com/chriscow/speechstack-go/pkg/vad"               // Import to register energy VAD
	"github.com/chriscow/speechstack-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "speechstack",
	Short: "speechstack - a streaming speech pipeline",
	Long: `speechstack runs PCM audio through a configurable pipeline of gain control,
noise suppression, voice activity detection, wakeword or keyword triggers,
activation timeout and speech recognition.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
	},
}

// setupLogger builds the root logger from the log config block.
// SPEECHSTACK_LOG_LEVEL and SPEECHSTACK_LOG_FORMAT take precedence.
func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := cfg.Level
	if env := config.LogLevel(os.Getenv("SPEECHSTACK_LOG_LEVEL")); env.IsValid() {
		level = env
	}
	format := cfg.Format
	if env := config.LogFormat(os.Getenv("SPEECHSTACK_LOG_FORMAT")); env.IsValid() {
		format = env
	}

	opts := &slog.HandlerOptions{Level: level.Level()}

	var handler slog.Handler
	if format == config.FormatConsole {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to YAML config file")
	runCmd.Flags().StringP("profile", "p", "", "Override the pipeline profile")
	runCmd.Flags().StringP("input", "i", "", `WAV file to process, or "-" for raw PCM16LE on stdin`)
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	runCmd.Flags().String("save-dir", "", "Write each activation to a WAV file in this directory")
	_ = runCmd.MarkFlagRequired("input")

	pluginListCmd.Flags().StringP("kind", "k", "", "Filter by plugin kind (vad, stt)")

	modelsCmd.AddCommand(modelsInspectCmd)
	pluginCmd.AddCommand(pluginListCmd, pluginDownloadCmd)
	rootCmd.AddCommand(versionCmd, runCmd, modelsCmd, pluginCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

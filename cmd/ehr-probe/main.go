package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/config"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/ehr"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/logging"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/model"
	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/runner"
)

var errRunFailed = errors.New("probe run failed")

type commonFlags struct {
	settingsFile string
	strictness   string
	audioFile    string
	timeout      time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &commonFlags{}

	rootCmd := &cobra.Command{
		Use:           "ehr-probe",
		Short:         "Smoke test for the audio-to-EHR processing API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.settingsFile, "settings", "", "dotenv settings file (default $SETTINGS_FILE or $HOME/.env)")
	rootCmd.PersistentFlags().StringVar(&flags.strictness, "strictness", "", "validation mode: strict or lenient (overrides PROBE_STRICTNESS)")

	rootCmd.AddCommand(runCmd(flags))
	rootCmd.AddCommand(validateCmd(flags))
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(sectionsCmd(flags))

	return rootCmd
}

// loadConfig loads settings, applies command-line overrides and configures logging.
func loadConfig(cmd *cobra.Command, flags *commonFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.settingsFile)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(flags.strictness) != "" {
		strictness, err := model.ParseStrictness(flags.strictness)
		if err != nil {
			return nil, err
		}
		cfg.Strictness = strictness
	}
	if f := cmd.Flags().Lookup("audio"); f != nil && f.Changed {
		cfg.AudioFile = flags.audioFile
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		cfg.Timeout = flags.timeout
	}

	settings := cfg.LoggingSettings()
	settings.Output = cmd.ErrOrStderr()
	logging.Configure(settings)
	return cfg, nil
}

func runCmd(flags *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Authenticate, upload the audio file, validate the response and email the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := runner.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			outcome, err := r.Run(ctx, cfg.UploadRequest())
			printReport(cmd.OutOrStdout(), outcome.Report)
			if err != nil {
				return err
			}
			if !outcome.Report.Success {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.audioFile, "audio", "", "audio file to upload (overrides PROBE_AUDIO_FILE)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", model.DefaultProbeTimeout, "request timeout (overrides PROBE_TIMEOUT)")
	return cmd
}

func validateCmd(flags *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <response.json>",
		Short: "Validate a saved process_audio response without calling the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			text, err := ehr.Validate(body, cfg.Sections, cfg.Strictness)
			if err != nil {
				report := model.FailureReport(model.AsProbeError(err, model.ErrorKindMalformedResponse))
				printReport(cmd.OutOrStdout(), report)
				return errRunFailed
			}
			printReport(cmd.OutOrStdout(), model.SuccessReport(text))
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a well-formed process_audio response",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := ehr.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	}
}

func sectionsCmd(flags *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the summary sections the validator expects, in report order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			for _, section := range cfg.Sections {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", section.Label, section.Field); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printReport(w io.Writer, report model.Report) {
	status := "PASSED"
	if !report.Success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s\n\n%s\n", status, report.Body)
}

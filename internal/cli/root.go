// Package cli wires the watson root command.
package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/commands"
	"github.com/watson-developer-cloud/go-sdk/internal/completion"
	"github.com/watson-developer-cloud/go-sdk/internal/config"
	"github.com/watson-developer-cloud/go-sdk/internal/hostutil"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/version"
)

var shorthandFlagRE = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)
var requiredFlagRE = regexp.MustCompile(`required flag\(s\) "([\w-]+)"`)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags
	var overrides config.FlagOverrides

	cmd := &cobra.Command{
		Use:   "watson",
		Short: "Command-line interface for IBM Watson services",
		Long: `watson calls IBM Watson services with credentials resolved from
ibm-credentials.env, <SERVICE>_* environment variables or VCAP_SERVICES.
IAM tokens are fetched, cached and refreshed automatically.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "help", "version", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
				return nil
			}

			cfg, err := config.Load(overrides)
			if err != nil {
				return &output.Error{Code: output.CodeConfiguration, Message: err.Error(), Cause: err}
			}

			app := appctx.NewApp(cfg)
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			resolvePreferences(cmd, cfg, &flags)
			app.Flags = flags
			app.ApplyFlags()

			if cfg.DisableSSL && cfg.URL != "" && !hostutil.IsLocalhost(cfg.URL) {
				fmt.Fprintf(app.Stderr, "warning: TLS verification is disabled for %s\n", cfg.URL)
			}

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	pf := cmd.PersistentFlags()

	// Output format flags
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	pf.BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	pf.BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	pf.BoolVar(&flags.Count, "count", false, "Output only count")
	pf.StringVar(&flags.JQ, "jq", "", "Filter output data with a jq expression")

	// Service flags
	pf.StringVarP(&overrides.Service, "service", "s", "", "Service name, e.g. tone_analyzer")
	pf.StringVar(&overrides.URL, "url", "", "Service URL override")
	pf.StringVar(&overrides.IAMURL, "iam-url", "", "IAM token endpoint override")
	pf.StringVar(&overrides.Timeout, "timeout", "", "Per-request timeout, e.g. 30s")
	pf.BoolVar(&overrides.Insecure, "insecure", false, "Skip TLS certificate verification")
	pf.BoolVar(&overrides.NoKeyring, "no-keyring", false, "Store IAM tokens in a file instead of the system keyring")
	pf.StringVar(&overrides.ConfigFile, "config", "", "Config file (default: layered lookup)")

	// Behavior flags
	pf.CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for operations, -vv for requests)")
	pf.BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	pf.BoolVar(&flags.NoStats, "no-stats", false, "Hide session statistics")
	pf.String("cache-dir", "", "Completion cache directory")

	cmd.MarkFlagsMutuallyExclusive("stats", "no-stats")

	completer := completion.NewCompleter(nil)
	_ = cmd.RegisterFlagCompletionFunc("service", completer.ServiceCompletion())
	_ = cmd.RegisterFlagCompletionFunc("timeout", cobra.FixedCompletions(
		[]string{"10s", "30s", "60s", "2m"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// resolvePreferences fills stats and verbosity from config when the
// matching flags were not given. Stats default on for dev builds.
func resolvePreferences(cmd *cobra.Command, cfg *config.Config, flags *appctx.GlobalFlags) {
	switch {
	case flagChanged(cmd, "stats"):
	case flagChanged(cmd, "no-stats") && flags.NoStats:
		flags.Stats = false
	case cfg.Stats != nil:
		flags.Stats = *cfg.Stats
	default:
		flags.Stats = version.IsDev()
	}

	if !flagChanged(cmd, "verbose") && cfg.Verbose != nil {
		flags.Verbose = *cfg.Verbose
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(name)
	}
	if f == nil {
		f = cmd.InheritedFlags().Lookup(name)
	}
	return f != nil && f.Changed
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	cmd := NewRootCmd()
	cmd.AddCommand(commands.All()...)

	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		os.Exit(apiErr.ExitCode())
	}

	// The app is missing when setup failed; pick the format from raw flags.
	_ = output.New(output.Options{
		Format: fallbackFormat(cmd),
		Writer: os.Stdout,
	}).Err(err)
	os.Exit(apiErr.ExitCode())
}

func fallbackFormat(cmd *cobra.Command) output.Format {
	pf := cmd.PersistentFlags()
	for _, f := range []struct {
		name   string
		format output.Format
	}{
		{"count", output.FormatCount},
		{"quiet", output.FormatQuiet},
		{"json", output.FormatJSON},
		{"yaml", output.FormatYAML},
		{"styled", output.FormatStyled},
	} {
		if on, _ := pf.GetBool(f.name); on {
			return f.format
		}
	}
	return output.FormatAuto
}

// transformCobraError rewrites cobra's parse errors as usage errors with
// consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}
	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if m := shorthandFlagRE.FindStringSubmatch(msg); len(m) > 1 {
			return output.ErrUsage("Unknown option: " + m[1])
		}
	}
	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(strings.SplitN(msg, "\n", 2)[0], "Run: watson commands")
	}
	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}
	if strings.Contains(msg, "arg(s)") {
		return output.ErrUsage(msg)
	}
	if strings.HasPrefix(msg, "required flag(s) ") {
		if m := requiredFlagRE.FindStringSubmatch(msg); len(m) > 1 {
			return output.ErrUsage("--" + m[1] + " required")
		}
	}
	if strings.HasPrefix(msg, "if any flags in the group") {
		return output.ErrUsage(msg)
	}

	return err
}

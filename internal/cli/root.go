package cli

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/gdmirror/internal/config"
	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/dl-alexandre/gdmirror/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	globalFlags types.GlobalFlags
	cfg         *config.Config
	logger      logging.Logger = logging.NewNoOpLogger()
	status      *logging.StatusLine
	debugRT     *logging.DebugTransport
)

var rootCmd = &cobra.Command{
	Use:   "gdmirror [flags] <remote-root> <local-root>",
	Short: "Mirror a Google Drive folder to a local directory",
	Long: `gdmirror copies a Google Drive folder tree to a local directory.

Files are transferred when they are missing locally or when their size or
modification time differs. Local files with no remote counterpart are
reported as orphans and removed only with --delete.

Use a remote root of / to mirror the whole drive.`,
	Version:       version.Version,
	Args:          mirrorArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	RunE: runMirror,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version, commit and build information of gdmirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet, globalFlags.Verbose)
		if globalFlags.OutputFormat == types.OutputFormatJSON {
			return out.WriteSuccess("version", version.Get())
		}
		fmt.Fprintln(out.stdout, version.Get().String())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.Profile, "profile", "default", "Stored credentials profile to use")
	pf.StringVar(&globalFlags.CredentialsFile, "credentials", "", "Service account or authorized-user JSON key file")
	pf.StringVar((*string)(&globalFlags.OutputFormat), "output", "table", "Output format (json, table)")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output, including HTTP requests")
	pf.StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	pf.StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	pf.BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	addMirrorFlags(rootCmd.Flags())
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	})

	rootCmd.AddCommand(versionCmd)
}

// normalizeFlagName accepts the spellings users carry over from other sync tools
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "dryrun", "dry_run":
		name = "dry-run"
	case "no_progress":
		name = "no-progress"
	}
	return pflag.NormalizedName(name)
}

// setup loads configuration and builds the logger. Precedence is
// flags > environment > config file > defaults.
func setup(cmd *cobra.Command) error {
	var err error
	if globalFlags.Config != "" {
		cfg, err = config.LoadFrom(globalFlags.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err)
	}

	applyConfig(cmd.Flags(), cfg)
	if err := validateGlobalFlags(); err != nil {
		return err
	}

	status = nil
	if !globalFlags.Quiet && cfg.LogLevel != "quiet" {
		status = logging.NewStatusLine(stderrWriter)
	}

	logConfig := logging.LogConfig{
		Level:           consoleLevel(),
		OutputFile:      globalFlags.LogFile,
		EnableConsole:   true,
		EnableDebug:     globalFlags.Debug,
		RedactSensitive: true,
		EnableColor:     cfg.ColorOutput,
		EnableTimestamp: globalFlags.Verbose || globalFlags.Debug,
		MaxFileSize:     100 * 1024 * 1024,
		Console:         stderrWriter,
		Status:          status,
	}
	logger, debugRT, err = logging.NewDebugLoggerWithTransport(logConfig)
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("failed to initialize logger: %v", err)).Build(), err)
	}
	return nil
}

// applyConfig fills every flag the user did not set from the loaded config
func applyConfig(flags *pflag.FlagSet, c *config.Config) {
	if !flags.Changed("profile") && c.DefaultProfile != "" {
		globalFlags.Profile = c.DefaultProfile
	}
	if !flags.Changed("output") {
		globalFlags.OutputFormat = c.DefaultOutputFormat
	}
	if !flags.Changed("credentials") {
		globalFlags.CredentialsFile = c.CredentialsFile
	}
	if flags.Lookup("progress-interval") != nil && !flags.Changed("progress-interval") {
		mirrorOpts.progressInterval = c.GetProgressInterval()
	}
	switch c.LogLevel {
	case "quiet":
		if !flags.Changed("quiet") {
			globalFlags.Quiet = true
		}
	case "verbose":
		if !flags.Changed("verbose") {
			globalFlags.Verbose = true
		}
	case "debug":
		if !flags.Changed("debug") {
			globalFlags.Debug = true
		}
	}
}

// consoleLevel keeps normal runs to warnings; per-file lines come from the
// mirror reporter, not the logger.
func consoleLevel() logging.LogLevel {
	switch {
	case globalFlags.Debug, globalFlags.Verbose:
		return logging.DEBUG
	case globalFlags.Quiet:
		return logging.ERROR
	default:
		return logging.WARN
	}
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid output format: %s", globalFlags.OutputFormat)).Build())
	}
	return nil
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	defer logger.Close()
	status.Clear()
	if err == nil {
		return utils.ExitSuccess
	}

	cliErr := utils.ToCLIError(err)
	if ctx.Err() != nil && cliErr.Code == utils.ErrCodeUnknown {
		cliErr = utils.NewCLIError(utils.ErrCodeCancelled, "Interrupted").Build()
	}

	out := NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet, globalFlags.Verbose)
	_ = out.WriteError(commandName(cmd), cliErr)
	return utils.GetExitCode(cliErr.Code)
}

func commandName(cmd *cobra.Command) string {
	if cmd == nil || cmd == rootCmd {
		return "mirror"
	}
	name := cmd.Name()
	for p := cmd.Parent(); p != nil && p != rootCmd; p = p.Parent() {
		name = p.Name() + "." + name
	}
	return name
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}

// exactArgs is cobra.ExactArgs reporting as INVALID_ARGUMENT
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
				WithContext("usage", cmd.UseLine()).Build())
		}
		return nil
	}
}

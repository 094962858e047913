package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/api"
	"github.com/dl-alexandre/gdmirror/internal/auth"
	"github.com/dl-alexandre/gdmirror/internal/config"
	syncengine "github.com/dl-alexandre/gdmirror/internal/sync"
	"github.com/dl-alexandre/gdmirror/internal/sync/exclude"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type mirrorFlags struct {
	dryRun           bool
	limit            string
	delete           bool
	exclude          string
	progressInterval time.Duration
	noProgress       bool
}

var mirrorOpts mirrorFlags

var (
	// remoteClientFactory builds the Drive client; replaced in tests
	remoteClientFactory = newDriveClient
	localFs             = afero.NewOsFs()
)

func addMirrorFlags(f *pflag.FlagSet) {
	f.BoolVarP(&mirrorOpts.dryRun, "dry-run", "n", false, "Report what would change without writing anything")
	f.StringVarP(&mirrorOpts.limit, "limit", "l", "", "Transfer rate limit in bytes/sec (e.g. 500000, 512K, 2MB)")
	f.BoolVar(&mirrorOpts.delete, "delete", false, "Remove local files that are not on Drive")
	f.StringVar(&mirrorOpts.exclude, "exclude", "", "Comma-separated exclude patterns (name, glob or dir/)")
	f.DurationVar(&mirrorOpts.progressInterval, "progress-interval", transfer.DefaultProgressInterval, "Progress update interval")
	f.BoolVar(&mirrorOpts.noProgress, "no-progress", false, "Disable transfer progress")
}

func mirrorArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("expected <remote-root> <local-root>, got %d argument(s)", len(args))).
			WithContext("usage", cmd.UseLine()).Build())
	}
	return nil
}

// parseLimit accepts a plain byte count or a human size. Empty and "0"
// disable the limit.
func parseLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("limit must not be negative: %s", s)
		}
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q: %w", s, err)
	}
	return int64(n), nil
}

func runMirror(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	limit, err := parseLimit(mirrorOpts.limit)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("flag", "limit").Build())
	}
	matcher, err := exclude.Parse(mirrorOpts.exclude)
	if err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("flag", "exclude").Build())
	}

	localRoot, err := filepath.Abs(args[1])
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("Invalid local root: %s", args[1])).Build(), err)
	}

	client, err := remoteClientFactory(ctx, flags, cfg)
	if err != nil {
		return err
	}

	// progress lines go to stderr when stdout carries the JSON envelope
	lines := out.stdout
	if flags.OutputFormat == types.OutputFormatJSON {
		lines = out.stderr
	}
	reporter := newConsoleReporter(lines, status, cfg.ColorOutput, flags.Quiet, flags.Verbose)

	engine := syncengine.NewEngine(client, localFs, logger).WithReporter(reporter)
	summary, err := engine.Run(ctx, syncengine.Options{
		RemoteRoot:       args[0],
		LocalRoot:        localRoot,
		DryRun:           mirrorOpts.dryRun,
		Delete:           mirrorOpts.delete,
		Limit:            limit,
		Exclude:          matcher,
		ProgressInterval: mirrorOpts.progressInterval,
		NoProgress:       mirrorOpts.noProgress || status == nil || !status.Enabled(),
	})
	status.Clear()
	if err != nil {
		return err
	}

	if summary.DryRun && mirrorOpts.delete {
		out.AddWarning("DRY_RUN", "--delete is ignored in dry-run mode", "info")
	}
	if len(summary.Orphans) > 0 && !mirrorOpts.delete && !summary.DryRun {
		out.AddWarning("ORPHANS_KEPT",
			fmt.Sprintf("%d local file(s) not on Drive were kept; pass --delete to remove them", len(summary.Orphans)),
			"info")
	}
	if flags.Quiet && flags.OutputFormat == types.OutputFormatTable {
		return nil
	}
	return out.WriteSuccess("mirror", mirrorResult{summary})
}

// newDriveClient resolves credentials and builds the retrying Drive client
func newDriveClient(ctx context.Context, flags types.GlobalFlags, c *config.Config) (syncengine.RemoteClient, error) {
	configDir, err := configDirFor(flags)
	if err != nil {
		return nil, err
	}
	mgr := auth.NewManagerWithOptions(configDir, auth.ManagerOptions{Logger: logger})
	if warning := mgr.GetStorageWarning(); warning != "" {
		logger.Warn(warning)
	}

	creds, err := mgr.Resolve(ctx, auth.CredentialOptions{
		CredentialsFile: flags.CredentialsFile,
		Profile:         flags.Profile,
	})
	if err != nil {
		return nil, err
	}

	var base http.RoundTripper
	if debugRT != nil {
		base = debugRT
	}
	svc, err := mgr.DriveService(ctx, creds, base)
	if err != nil {
		return nil, err
	}

	return api.NewClient(svc, api.ClientOptions{
		MaxRetries:     c.MaxRetries,
		RetryDelayMs:   c.RetryBaseDelay,
		PageSize:       c.PageSize,
		RequestTimeout: c.GetRequestTimeout(),
		Profile:        flags.Profile,
		Logger:         logger,
	}), nil
}

// configDirFor is the directory holding config and stored credentials: the
// directory of --config when given, the default otherwise.
func configDirFor(flags types.GlobalFlags) (string, error) {
	if flags.Config != "" {
		return filepath.Dir(flags.Config), nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO, err.Error()).Build(), err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Cannot create config directory %s", dir)).Build(), err)
	}
	return dir, nil
}

// mirrorResult is the printable form of a run summary
type mirrorResult struct {
	*syncengine.Summary
}

func (r mirrorResult) AsTableRenderer() types.TableRenderer {
	s := r.Summary
	mode := "live"
	if s.DryRun {
		mode = "dry run"
	}
	rows := [][]string{
		{"Remote root", "gdrive://" + s.RemoteRoot},
		{"Local root", s.LocalRoot},
		{"Mode", mode},
		{"Listed", humanize.Comma(int64(s.Listed))},
		{"Files in scope", humanize.Comma(int64(s.Scanned))},
		{"Transferred", humanize.Comma(int64(s.Transferred))},
		{"Would transfer", humanize.Comma(int64(s.WouldTransfer))},
		{"Unchanged", humanize.Comma(int64(s.Skipped))},
		{"Unsupported", humanize.Comma(int64(s.Unsupported))},
		{"Excluded", humanize.Comma(int64(s.Excluded))},
		{"Bytes", humanize.IBytes(uint64(s.Bytes))},
		{"Orphans", humanize.Comma(int64(len(s.Orphans)))},
		{"Removed", humanize.Comma(int64(s.Removed))},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	return keyValueTable{headers: [2]string{"Metric", "Value"}, rows: rows}
}

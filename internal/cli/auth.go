package cli

import (
	"github.com/dl-alexandre/gdmirror/internal/auth"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Credential management",
	Long: `Manage the credentials used to read Google Drive.

Credentials are resolved in order: --credentials key file, the stored
profile selected by --profile, then application default credentials.`,
}

var authImportCmd = &cobra.Command{
	Use:   "import <key.json>",
	Short: "Store a JSON key under a profile",
	Long:  "Validate a service account or authorized-user JSON key and store it under --profile",
	Args:  exactArgs(1),
	RunE:  runAuthImport,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored profiles",
	Long:  "Display every stored credential profile and the storage backend in use",
	Args:  exactArgs(0),
	RunE:  runAuthStatus,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove stored credentials",
	Long:  "Delete the stored credentials for --profile",
	Args:  exactArgs(0),
	RunE:  runAuthRemove,
}

func init() {
	authCmd.AddCommand(authImportCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRemoveCmd)
	rootCmd.AddCommand(authCmd)
}

func authManager(flags types.GlobalFlags) (*auth.Manager, error) {
	configDir, err := configDirFor(flags)
	if err != nil {
		return nil, err
	}
	return auth.NewManagerWithOptions(configDir, auth.ManagerOptions{Logger: logger}), nil
}

func runAuthImport(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	mgr, err := authManager(flags)
	if err != nil {
		return err
	}
	if warning := mgr.GetStorageWarning(); warning != "" {
		out.AddWarning("INSECURE_STORAGE", warning, "warning")
	}

	stored, err := mgr.Import(cmd.Context(), flags.Profile, args[0])
	if err != nil {
		return err
	}

	out.Log("Stored credentials for profile '%s' (%s)", stored.Profile, mgr.GetStorageBackend())
	return out.WriteSuccess("auth.import", auth.ProfileStatus{
		Profile:  stored.Profile,
		Backend:  mgr.GetStorageBackend(),
		Email:    stored.Email,
		ClientID: stored.ClientID,
		Imported: stored.Imported,
	})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	mgr, err := authManager(flags)
	if err != nil {
		return err
	}
	statuses, err := mgr.Status()
	if err != nil {
		return err
	}
	return out.WriteSuccess("auth.status", profileTable(statuses))
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	mgr, err := authManager(flags)
	if err != nil {
		return err
	}
	if err := mgr.Remove(flags.Profile); err != nil {
		return err
	}

	out.Log("Removed credentials for profile '%s'", flags.Profile)
	return out.WriteSuccess("auth.remove", map[string]string{
		"profile": flags.Profile,
		"status":  "removed",
	})
}

type profileTable []auth.ProfileStatus

func (t profileTable) AsTableRenderer() types.TableRenderer {
	rows := make([][]string, 0, len(t))
	for _, st := range t {
		identity := st.Email
		if identity == "" {
			identity = truncate(st.ClientID, 40)
		}
		if st.Error != "" {
			identity = "error: " + st.Error
		}
		rows = append(rows, []string{st.Profile, st.Backend, identity, st.Imported})
	}
	return tableRows{
		headers: []string{"Profile", "Backend", "Identity", "Imported"},
		rows:    rows,
		empty:   "No stored profiles. Run 'gdmirror auth import <key.json>'.",
	}
}

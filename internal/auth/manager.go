package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/jonboulle/clockwork"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const serviceName = "gdmirror"

// Manager resolves Google credentials and owns the per-profile key store
type Manager struct {
	configDir      string
	useKeyring     bool
	storage        StorageBackend
	storageWarning string
	logger         logging.Logger
	clock          clockwork.Clock

	findDefault func(ctx context.Context, scopes ...string) (*google.Credentials, error)
}

// ManagerOptions configures the auth manager
type ManagerOptions struct {
	ForceEncryptedFile bool // Force use of encrypted file storage
	ForcePlainFile     bool // Force use of plain file storage (insecure, dev only)
	Logger             logging.Logger
	Clock              clockwork.Clock
}

// NewManager creates a new auth manager
func NewManager(configDir string) *Manager {
	return NewManagerWithOptions(configDir, ManagerOptions{})
}

// NewManagerWithOptions creates a new auth manager with specific options
func NewManagerWithOptions(configDir string, opts ManagerOptions) *Manager {
	mgr := &Manager{
		configDir:   configDir,
		logger:      opts.Logger,
		clock:       opts.Clock,
		findDefault: google.FindDefaultCredentials,
	}
	if mgr.logger == nil {
		mgr.logger = logging.NewNoOpLogger()
	}
	if mgr.clock == nil {
		mgr.clock = clockwork.NewRealClock()
	}

	switch {
	case opts.ForcePlainFile:
		mgr.storage = NewPlainFileStorage(configDir)
		mgr.storageWarning = "Using unencrypted file storage. Credentials are stored in plain text."
	case opts.ForceEncryptedFile || !checkKeyringAvailable():
		storage, err := NewEncryptedFileStorage(configDir)
		if err != nil {
			mgr.storage = NewPlainFileStorage(configDir)
			mgr.storageWarning = fmt.Sprintf("Encryption setup failed (%v). Using plain file storage.", err)
		} else {
			mgr.storage = storage
			if !opts.ForceEncryptedFile {
				mgr.storageWarning = "System keyring not available. Using encrypted file storage."
			}
		}
	default:
		mgr.storage = NewKeyringStorage(serviceName)
		mgr.useKeyring = true
	}

	return mgr
}

func checkKeyringAvailable() bool {
	testKey := serviceName + "-probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// CredentialOptions selects which credentials a run should use
type CredentialOptions struct {
	CredentialsFile string
	Profile         string
	Scopes          []string
}

// ResolvedCredentials are credentials plus where they came from
type ResolvedCredentials struct {
	*google.Credentials
	Source  types.CredentialSource
	Profile string
}

// Resolve finds credentials in order: explicit key file, stored profile,
// application default credentials.
func (m *Manager) Resolve(ctx context.Context, opts CredentialOptions) (*ResolvedCredentials, error) {
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = utils.ScopesMirror
	}

	if opts.CredentialsFile != "" {
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
				fmt.Sprintf("Cannot read credentials file: %s", opts.CredentialsFile)).
				WithContext("path", opts.CredentialsFile).Build(), err)
		}
		creds, err := credentialsFromKey(ctx, data, scopes)
		if err != nil {
			return nil, err
		}
		m.logger.Debug("Using credentials file", logging.F("path", opts.CredentialsFile))
		return &ResolvedCredentials{Credentials: creds, Source: types.CredentialSourceFile}, nil
	}

	if opts.Profile != "" {
		stored, err := m.Stored(opts.Profile)
		switch {
		case err == nil:
			creds, err := credentialsFromKey(ctx, stored.KeyJSON, scopes)
			if err != nil {
				return nil, err
			}
			m.logger.Debug("Using stored profile",
				logging.F("profile", opts.Profile),
				logging.F("backend", m.storage.Name()))
			return &ResolvedCredentials{Credentials: creds, Source: types.CredentialSourceStored, Profile: opts.Profile}, nil
		case !errors.Is(err, ErrProfileNotFound):
			return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
				fmt.Sprintf("Failed to load stored credentials for profile '%s'", opts.Profile)).Build(), err)
		}
	}

	creds, err := m.findDefault(ctx, scopes...)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
			"No credentials found. Run 'gdmirror auth import <key.json>' or pass --credentials.").
			WithContext("suggestedAction", "gdmirror auth import <key.json>").Build(), err)
	}
	m.logger.Debug("Using application default credentials")
	return &ResolvedCredentials{Credentials: creds, Source: types.CredentialSourceDefault}, nil
}

func credentialsFromKey(ctx context.Context, data []byte, scopes []string) (*google.Credentials, error) {
	if _, err := parseKey(data); err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid, err.Error()).Build(), err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
			"Credentials key rejected").Build(), err)
	}
	return creds, nil
}

// HTTPClient returns an authorized client. base, when set, carries the
// requests underneath the OAuth2 transport.
func (m *Manager) HTTPClient(ctx context.Context, creds *ResolvedCredentials, base http.RoundTripper) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	}
	return oauth2.NewClient(ctx, creds.TokenSource)
}

// DriveService builds a Drive v3 service for creds
func (m *Manager) DriveService(ctx context.Context, creds *ResolvedCredentials, base http.RoundTripper, opts ...option.ClientOption) (*drive.Service, error) {
	client := m.HTTPClient(ctx, creds, base)
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
			"Failed to create Drive service").Build(), err)
	}
	return svc, nil
}

// Import validates a JSON key file and stores it under profile
func (m *Manager) Import(ctx context.Context, profile, keyPath string) (*types.StoredCredentials, error) {
	if profile == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"Profile name is required").Build())
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("Cannot read key file: %s", keyPath)).WithContext("path", keyPath).Build(), err)
	}

	key, err := parseKey(data)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid, err.Error()).Build(), err)
	}
	if _, err := credentialsFromKey(ctx, data, utils.ScopesMirror); err != nil {
		return nil, err
	}

	stored := &types.StoredCredentials{
		Profile:  profile,
		KeyJSON:  data,
		ClientID: key.ClientID,
		Email:    key.ClientEmail,
		Imported: m.clock.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := m.storage.Save(profile, payload); err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Failed to store credentials in %s", m.storage.Name())).Build(), err)
	}

	if err := m.addProfileToList(profile); err != nil {
		m.logger.Warn("Failed to update profile list", logging.F("error", err.Error()))
	}

	m.logger.Info("Imported credentials",
		logging.F("profile", profile),
		logging.F("type", key.Type),
		logging.F("backend", m.storage.Name()))
	return stored, nil
}

// Stored loads the stored credentials for profile
func (m *Manager) Stored(profile string) (*types.StoredCredentials, error) {
	data, err := m.storage.Load(profile)
	if err != nil {
		return nil, err
	}

	var stored types.StoredCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse stored credentials: %w", err)
	}
	return &stored, nil
}

// Remove deletes the stored credentials for profile
func (m *Manager) Remove(profile string) error {
	if err := m.storage.Delete(profile); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
				fmt.Sprintf("No stored credentials for profile '%s'", profile)).Build(), err)
		}
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			"Failed to remove stored credentials").Build(), err)
	}

	if err := m.removeProfileFromList(profile); err != nil {
		m.logger.Warn("Failed to update profile list", logging.F("error", err.Error()))
	}
	return nil
}

// ProfileStatus describes one stored profile for `auth status`
type ProfileStatus struct {
	Profile  string `json:"profile"`
	Backend  string `json:"backend"`
	Email    string `json:"email,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Imported string `json:"imported,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Status reports every stored profile
func (m *Manager) Status() ([]ProfileStatus, error) {
	profiles, err := m.ListProfiles()
	if err != nil {
		return nil, err
	}

	statuses := make([]ProfileStatus, 0, len(profiles))
	for _, profile := range profiles {
		st := ProfileStatus{Profile: profile, Backend: m.storage.Name()}
		stored, err := m.Stored(profile)
		if err != nil {
			st.Error = err.Error()
		} else {
			st.Email = stored.Email
			st.ClientID = stored.ClientID
			st.Imported = stored.Imported
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// ListProfiles lists all stored credential profiles
func (m *Manager) ListProfiles() ([]string, error) {
	if !m.useKeyring {
		return listCredentialFiles(m.configDir)
	}

	// Keyrings cannot be enumerated, so names are tracked on disk.
	data, err := os.ReadFile(m.profilesFile())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var profiles []string
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	sort.Strings(profiles)
	return profiles, nil
}

func (m *Manager) profilesFile() string {
	return filepath.Join(m.configDir, "profiles.json")
}

func (m *Manager) addProfileToList(profile string) error {
	if !m.useKeyring {
		return nil
	}

	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p == profile {
			return nil
		}
	}
	return m.writeProfiles(append(profiles, profile))
}

func (m *Manager) removeProfileFromList(profile string) error {
	if !m.useKeyring {
		return nil
	}

	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}
	updated := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p != profile {
			updated = append(updated, p)
		}
	}
	return m.writeProfiles(updated)
}

func (m *Manager) writeProfiles(profiles []string) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(m.profilesFile(), data, 0600)
}

// UseKeyring returns whether the manager is using the system keyring
func (m *Manager) UseKeyring() bool {
	return m.useKeyring
}

// ConfigDir returns the configuration directory
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// GetStorageBackend returns the name of the storage backend being used
func (m *Manager) GetStorageBackend() string {
	return m.storage.Name()
}

// GetStorageWarning returns any warning message about the storage backend
func (m *Manager) GetStorageWarning() string {
	return m.storageWarning
}

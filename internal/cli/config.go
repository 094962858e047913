package cli

import (
	"fmt"
	"strconv"

	"github.com/dl-alexandre/gdmirror/internal/config"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing gdmirror configuration",
	// a broken config file must not block the commands that repair it
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateGlobalFlags()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration (file, then environment overrides)",
	Args:  exactArgs(0),
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Keys: defaultProfile, defaultOutputFormat,
credentialsFile, maxRetries, retryBaseDelay, requestTimeout, pageSize,
progressInterval, logLevel, colorOutput.`,
	Args: exactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  "Reset all configuration settings to their default values",
	Args:  exactArgs(0),
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if globalFlags.Config != "" {
		return globalFlags.Config, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO, err.Error()).Build(), err)
	}
	return path, nil
}

func loadConfigForEdit() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	c, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("suggestedAction", "gdmirror config reset").Build(), err)
	}
	return c, path, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	c, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}
	out.Verbose("Config file: %s", path)
	return out.WriteSuccess("config.show", configView{c})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	key, value := args[0], args[1]
	c, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	if err := c.Set(key, value); err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("key", key).Build(), err)
	}
	if err := c.SaveTo(path); err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Failed to save configuration: %v", err)).Build(), err)
	}

	out.Log("Configuration updated: %s = %s", key, value)
	return out.WriteSuccess("config.set", configChange{Key: key, Value: value})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	path, err := configPath()
	if err != nil {
		return err
	}
	c := config.DefaultConfig()
	if err := c.SaveTo(path); err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Failed to reset configuration: %v", err)).Build(), err)
	}

	out.Log("Configuration reset to defaults")
	return out.WriteSuccess("config.reset", configView{c})
}

// configView renders a config as key/value rows
type configView struct {
	*config.Config
}

func (v configView) AsTableRenderer() types.TableRenderer {
	c := v.Config
	return keyValueTable{
		headers: [2]string{"Key", "Value"},
		rows: [][]string{
			{"defaultProfile", c.DefaultProfile},
			{"defaultOutputFormat", string(c.DefaultOutputFormat)},
			{"credentialsFile", c.CredentialsFile},
			{"maxRetries", strconv.Itoa(c.MaxRetries)},
			{"retryBaseDelay", strconv.Itoa(c.RetryBaseDelay)},
			{"requestTimeout", strconv.Itoa(c.RequestTimeout)},
			{"pageSize", strconv.Itoa(c.PageSize)},
			{"progressInterval", strconv.Itoa(c.ProgressInterval)},
			{"logLevel", c.LogLevel},
			{"colorOutput", strconv.FormatBool(c.ColorOutput)},
		},
	}
}

type configChange struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (c configChange) AsTableRenderer() types.TableRenderer {
	return keyValueTable{headers: [2]string{"Key", "Value"}, rows: [][]string{{c.Key, c.Value}}}
}

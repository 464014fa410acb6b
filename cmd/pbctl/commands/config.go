package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pbclient"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	URL     string         `json:"url,omitempty"     yaml:"url,omitempty"`
	Output  string         `json:"output,omitempty"  yaml:"output,omitempty"`
	Retries int            `json:"retries"           yaml:"retries"`
	Session *SessionConfig `json:"session,omitempty" yaml:"session,omitempty"`
}

// SessionConfig is the saved authentication state. The record is kept as a
// JSON string so its keys survive viper's case folding.
type SessionConfig struct {
	URL        string `json:"url"                yaml:"url"`
	Collection string `json:"collection"         yaml:"collection"`
	Token      string `json:"token"              yaml:"token"`
	Record     string `json:"record"             yaml:"record"`
	SavedAt    string `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`
}

// AuthResult returns the saved session in the client's form.
func (s *SessionConfig) AuthResult() (pocketbase.AuthResult, error) {
	var record pocketbase.Record

	err := json.Unmarshal([]byte(s.Record), &record)
	if err != nil {
		return pocketbase.AuthResult{}, fmt.Errorf("saved session record is corrupt: %w", err)
	}

	return pocketbase.AuthResult{Token: s.Token, Record: record}, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the pbctl configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration. Tokens are never printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Session != nil {
				config.Session.Token = constants.RedactedValue
			}

			return render(cmd.OutOrStdout(), config, func(w io.Writer) error {
				return displayConfigTable(w, config)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set url, output, or retries in the configuration file",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return nil
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "url":
		config.URL = value
	case "output":
		if !validOutput(value) {
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, value)
		}

		config.Output = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("%w: %s", constants.ErrInvalidRetries, value)
		}

		config.Retries = retries
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func displayConfigTable(w io.Writer, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append("URL", valueOrNA(config.URL))
	_ = table.Append("Output", valueOrNA(config.Output))
	_ = table.Append("Retries", fmt.Sprint(config.Retries))

	if config.Session != nil {
		_ = table.Append("Session collection", config.Session.Collection)
		_ = table.Append("Session server", config.Session.URL)

		if saved, err := time.Parse(time.RFC3339, config.Session.SavedAt); err == nil {
			_ = table.Append("Logged in", humanize.Time(saved))
		}
	} else {
		_ = table.Append("Session", "not logged in")
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// loadConfig builds the configuration from viper: flags, PBCTL_* environment
// variables, and the config file, in that order of precedence.
func loadConfig() *Config {
	config := &Config{
		URL:     viper.GetString("url"),
		Output:  viper.GetString("output"),
		Retries: viper.GetInt("retries"),
	}

	if token := viper.GetString("session.token"); token != "" {
		config.Session = &SessionConfig{
			URL:        viper.GetString("session.url"),
			Collection: viper.GetString("session.collection"),
			Token:      token,
			Record:     viper.GetString("session.record"),
			SavedAt:    viper.GetString("session.saved_at"),
		}
	}

	return config
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".pbctl", "config.yml"), nil
}

// saveConfigStruct writes config and reloads it into viper.
func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// newClientConfig builds the client configuration for url from the global
// flags.
func newClientConfig(url string) *pocketbase.Config {
	config := &pocketbase.Config{
		BaseURL:          url,
		HTTPTimeout:      viper.GetDuration("timeout"),
		RetryMax:         viper.GetInt("retries"),
		UserAgent:        "pbctl/" + pocketbase.Version,
		SessionPersister: NewConfigPersister(url),
	}

	if viper.GetBool("verbose") {
		config.Logger = pocketbase.NewConsoleLogger(os.Stderr, zerolog.DebugLevel)
		config.Debug = true
	}

	return config
}

// CreateClient creates a client for the configured server, resuming the saved
// session when it belongs to that server.
func CreateClient() (pocketbase.Client, error) {
	config := loadConfig()
	if config.URL == "" {
		return nil, constants.ErrNoServerConfigured
	}

	clientConfig := newClientConfig(config.URL)

	if config.Session == nil || config.Session.URL != config.URL {
		return pbclient.New(clientConfig)
	}

	session, err := config.Session.AuthResult()
	if err != nil {
		return nil, err
	}

	return pbclient.NewWithAuth(clientConfig, session, config.Session.Collection)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

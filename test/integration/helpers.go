//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	URL        string
	Email      string
	Password   string
	Collection string
	PbctlPath  string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	collection := os.Getenv("PB_TEST_COLLECTION")
	if collection == "" {
		collection = "posts"
	}

	return &TestConfig{
		URL:        os.Getenv("PB_URL"),
		Email:      os.Getenv("PB_SUPERUSER_EMAIL"),
		Password:   os.Getenv("PB_SUPERUSER_PASSWORD"),
		Collection: collection,
		PbctlPath:  getPbctlPath(),
		Verbose:    os.Getenv("PBCTL_VERBOSE") == "true",
	}
}

// getPbctlPath determines the path to the pbctl binary
func getPbctlPath() string {
	if path := os.Getenv("PBCTL_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../pbctl",
		"./pbctl",
		"../pbctl",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "pbctl"
}

// SkipIfMissingServer skips the test when no server credentials are set.
func (config *TestConfig) SkipIfMissingServer(t *testing.T) {
	t.Helper()

	if config.URL == "" || config.Email == "" || config.Password == "" {
		t.Skip("PB_URL, PB_SUPERUSER_EMAIL, or PB_SUPERUSER_PASSWORD not set, skipping integration test")
	}
}

// SkipIfMissingBinary also skips when pbctl has not been built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	config.SkipIfMissingServer(t)

	if _, err := exec.LookPath(config.PbctlPath); err != nil {
		t.Skipf("pbctl binary not found at %s, skipping integration test", config.PbctlPath)
	}
}

// CommandRunner runs pbctl against its own config file
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a pbctl command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile, "--url", runner.config.URL}, args...)

	// #nosec G204 -- the binary path comes from the test environment
	cmd := exec.Command(runner.config.PbctlPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.PbctlPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// RunJSON executes a pbctl command with JSON output and decodes it into out.
func (runner *CommandRunner) RunJSON(out any, args ...string) error {
	stdout, stderr, err := runner.Run(append([]string{"--output", "json"}, args...)...)
	if err != nil {
		return fmt.Errorf("pbctl %s: %w: %s", strings.Join(args, " "), err, stderr)
	}

	err = json.Unmarshal([]byte(stdout), out)
	if err != nil {
		return fmt.Errorf("decoding pbctl output %q: %w", stdout, err)
	}

	return nil
}

// Login authenticates as the configured superuser
func (runner *CommandRunner) Login() error {
	_, stderr, err := runner.Run("login", "--identity", runner.config.Email, "--password", runner.config.Password)
	if err != nil {
		return fmt.Errorf("failed to log in: %s", stderr)
	}

	return nil
}

// CleanupRecord attempts to delete a test record
func (runner *CommandRunner) CleanupRecord(collection, id string) {
	stdout, stderr, err := runner.Run("records", "delete", collection, id)
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for %s/%s: %s\nStderr: %s", collection, id, stdout, stderr)
	}
}

// GenerateTestName creates a unique test record title
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

package cmd

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProReality/ClassiCubeLauncher/config"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// runRoot executes the CLI with args and returns what it printed for the user
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}

	expected := "Version: " + Version + "\n"
	if output != expected {
		t.Errorf("Expected %q, got %q", expected, output)
	}
}

func TestConfigInitAndSet(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, config.FileName)

	output, err := runRoot(t, "--dir", dir, "config", "init")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, configPath) {
		t.Errorf("Expected config path in output: %s", output)
	}

	_, err = runRoot(t, "--dir", dir, "config", "init")
	if !errors.Is(err, config.ErrConfigExists) || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("Expected ErrConfigExists with a hint, got %v", err)
	}
	if _, err := runRoot(t, "--dir", dir, "config", "init", "--force"); err != nil {
		t.Fatalf("Command with --force failed: %v", err)
	}

	if _, err := runRoot(t, "--dir", dir, "config", "set", "client.digest", "sha256"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	cfg, err := config.ParseFile(configPath)
	if err != nil {
		t.Fatalf("Failed to parse written config: %v", err)
	}
	if cfg.Client().Digest() != "sha256" {
		t.Errorf("Expected sha256 digest, got %s", cfg.Client().Digest())
	}

	output, err = runRoot(t, "--dir", dir, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output, configPath) {
		t.Errorf("Expected the resolved config file in output: %s", output)
	}
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	dir := t.TempDir()
	if _, err := runRoot(t, "--dir", dir, "config", "init"); err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, "--dir", dir, "config", "set", "client.digest", "crc32"); err == nil {
		t.Fatal("Expected an error for an unsupported digest")
	}

	after, err := os.ReadFile(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("A rejected value must leave the file unchanged")
	}
}

func newClientServer(t *testing.T, artifact []byte, artifactStatus int) *httptest.Server {
	t.Helper()
	sum := md5.Sum(artifact)
	mux := http.NewServeMux()
	mux.HandleFunc("/static/client/client.jar", func(w http.ResponseWriter, r *http.Request) {
		if artifactStatus != 0 {
			w.WriteHeader(artifactStatus)
			return
		}
		_, _ = w.Write(artifact)
	})
	mux.HandleFunc("/static/client/client.jar.md5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(hex.EncodeToString(sum[:])))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, dir string, server *httptest.Server) {
	t.Helper()
	content := fmt.Sprintf("client:\n  download_url: %[1]s/static/client/client.jar\n  hash_url: %[1]s/static/client/client.jar.md5\nhttp:\n  timeout: 5s\n", server.URL)
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateCommand(t *testing.T) {
	artifact := []byte("PK client jar")
	server := newClientServer(t, artifact, 0)
	dir := t.TempDir()
	writeConfig(t, dir, server)

	output, err := runRoot(t, "--dir", dir, "update")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "Client updated") {
		t.Errorf("Expected update message in output: %s", output)
	}
	installed, err := os.ReadFile(filepath.Join(dir, "client.jar"))
	if err != nil || !bytes.Equal(installed, artifact) {
		t.Fatalf("Expected the artifact to be installed (%v)", err)
	}

	output, err = runRoot(t, "--dir", dir, "update")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !strings.Contains(output, "No update installed") {
		t.Errorf("Expected no-op message in output: %s", output)
	}

	output, err = runRoot(t, "--dir", dir, "check")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(output, "up to date") {
		t.Errorf("Expected up to date in output: %s", output)
	}

	output, err = runRoot(t, "--dir", dir, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "client.jar") || !strings.Contains(output, "Receipt{") {
		t.Errorf("Expected artifact and receipt in output: %s", output)
	}
}

func TestUpdateCommandNetworkFailure(t *testing.T) {
	server := newClientServer(t, nil, http.StatusNotFound)
	dir := t.TempDir()
	writeConfig(t, dir, server)

	_, err := runRoot(t, "--dir", dir, "update")
	if !errors.Is(err, updates_api.ErrNetwork) {
		t.Fatalf("Expected a network error, got %v", err)
	}
	if code := ExitCode(err); code != ExitNetwork {
		t.Errorf("Expected exit code %d, got %d", ExitNetwork, code)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runRoot(t, "--dir", t.TempDir(), "--log-level", "loud", "status")
	if code := ExitCode(err); code != ExitConfig {
		t.Errorf("Expected exit code %d, got %d (%v)", ExitConfig, code, err)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := runRoot(t, "--dir", dir, "--config", filepath.Join(dir, "absent.yaml"), "status")
	if !errors.Is(err, updates_api.ErrConfig) {
		t.Errorf("Expected a config error, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"network", updates_api.NetworkError("download", "http://x", nil), ExitNetwork},
		{"io", updates_api.IOError("install", "/tmp/x", nil), ExitIO},
		{"decode", updates_api.DecodeError("decompress", "", nil), ExitDecode},
		{"config", updates_api.ConfigError("self-test", "", nil), ExitConfig},
		{"wrapped", fmt.Errorf("update: %w", updates_api.IOError("install", "", nil)), ExitIO},
		{"cancelled", fmt.Errorf("download: %w", context.Canceled), ExitCancelled},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

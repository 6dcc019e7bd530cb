package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nebula-ui/nebula-upload/internal/config"
)

// TestConfigCmd tests the config command group
func TestConfigCmd(t *testing.T) {
	cmd := newConfigCmd()
	if cmd == nil {
		t.Fatal("newConfigCmd() returned nil")
	}

	if cmd.Use != "config" {
		t.Errorf("Expected Use='config', got '%s'", cmd.Use)
	}

	subcommands := cmd.Commands()
	expectedSubs := []string{"init", "show", "test", "path"}

	if len(subcommands) != len(expectedSubs) {
		t.Errorf("Expected %d subcommands, got %d", len(expectedSubs), len(subcommands))
	}

	foundSubs := make(map[string]bool)
	for _, sub := range subcommands {
		foundSubs[sub.Name()] = true
		if sub.Short == "" {
			t.Errorf("Subcommand '%s' has no short description", sub.Name())
		}
		if sub.RunE == nil {
			t.Errorf("Subcommand '%s' has no RunE", sub.Name())
		}
	}

	for _, expected := range expectedSubs {
		if !foundSubs[expected] {
			t.Errorf("Subcommand '%s' not found", expected)
		}
	}
}

// TestConfigInit tests the config init command structure
func TestConfigInit(t *testing.T) {
	cmd := newConfigInitCmd()
	if cmd.Use != "init" {
		t.Errorf("Expected Use='init', got '%s'", cmd.Use)
	}
	if cmd.Flags().Lookup("force") == nil {
		t.Error("--force flag not found")
	}
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	AddCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// TestConfigInitWritesYAML runs the interactive setup with scripted answers
func TestConfigInitWritesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	answers := strings.Join([]string{
		"n",                          // S3?
		"https://example.com/upload", // action
		"attachment",                 // field name
		"",                           // cookies
		".txt,image/*",               // accept
		"",                           // multiple (default yes)
		"abc",                        // bad max size
		"1024",                       // max size
		"y",                          // gzip
		"",                           // proxy
	}, "\n") + "\n"

	out, err := runRoot(t, answers, "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration saved to") {
		t.Errorf("Expected confirmation in output, got:\n%s", out)
	}
	if !strings.Contains(out, "enter a whole number") {
		t.Errorf("Expected a re-prompt for the bad size, got:\n%s", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if cfg.Action != "https://example.com/upload" {
		t.Errorf("Action mismatch: got '%s'", cfg.Action)
	}
	if cfg.FieldName != "attachment" {
		t.Errorf("FieldName mismatch: got '%s'", cfg.FieldName)
	}
	if cfg.Accept != ".txt,image/*" {
		t.Errorf("Accept mismatch: got '%s'", cfg.Accept)
	}
	if !cfg.Multiple {
		t.Error("Expected Multiple to default to true")
	}
	if cfg.MaxSize != 1024 {
		t.Errorf("MaxSize mismatch: got %d", cfg.MaxSize)
	}
	if !cfg.Gzip {
		t.Error("Expected Gzip to be enabled")
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("ProxyMode mismatch: got '%s'", cfg.ProxyMode)
	}
}

// TestConfigInitKeepsExisting refuses to overwrite without --force
func TestConfigInitKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	cfg := config.Default()
	cfg.Action = "https://keep.example.com/upload"
	if err := config.SaveConfigCSV(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	out, err := runRoot(t, "", "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("Expected existing-config notice, got:\n%s", out)
	}

	loaded, err := config.LoadConfigCSV(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Action != "https://keep.example.com/upload" {
		t.Errorf("Config was overwritten: action '%s'", loaded.Action)
	}
}

// TestConfigShow prints the merged configuration
func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")
	cfg := config.Default()
	cfg.Action = "https://example.com/upload"
	cfg.Headers = map[string]string{"Authorization": "Bearer secret-token"}
	cfg.Data = map[string]string{"album": "trip"}
	if err := config.SaveConfigCSV(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	out, err := runRoot(t, "", "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	for _, want := range []string{"https://example.com/upload", "Field album: trip", "Header Authorization: <set"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret-token") {
		t.Error("Header value must not be printed")
	}
}

// TestConfigPath reports a missing file
func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	out, err := runRoot(t, "", "--config", path, "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("Expected path in output, got:\n%s", out)
	}
	if !strings.Contains(out, "does not exist") {
		t.Errorf("Expected missing-file status, got:\n%s", out)
	}
}

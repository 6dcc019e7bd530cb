package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nebula-ui/nebula-upload/internal/config"
	httpclient "github.com/nebula-ui/nebula-upload/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nebula-upload configuration",
		Long: `Configuration management commands for nebula-upload.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Check that the action URL is reachable
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for nebula-upload.

The configuration is saved to ~/.config/nebula/upload.csv, or to
the --config path (a .yaml or .yml path is written as YAML).

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigInit(newPrompter(cmd.InOrStdin(), out))
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			if cfg.ProxyUser != "" {
				fmt.Fprintln(out, "The proxy password is not stored. Set NEBULA_PROXY_PASSWORD or enter it when asked.")
			}
			fmt.Fprintln(out, "Test your configuration with: nebula-upload config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigInit asks for each setting, starting from the defaults.
func runConfigInit(p *prompter) (*config.Config, error) {
	cfg := config.Default()

	fmt.Fprintln(p.out, "nebula-upload Configuration Setup")
	fmt.Fprintln(p.out, "=================================")
	fmt.Fprintln(p.out)

	if p.yesNo("Upload to an S3 bucket instead of a URL?", false) {
		for cfg.S3Bucket == "" {
			cfg.S3Bucket = p.line("S3 bucket (required)", "")
			if cfg.S3Bucket == "" {
				fmt.Fprintln(p.out, "  Error: bucket is required")
				if _, err := p.reader.Peek(1); err != nil {
					return nil, fmt.Errorf("S3 bucket is required")
				}
			}
		}
		cfg.S3Prefix = p.line("Key prefix", "")
		cfg.S3Region = p.line("Region", "us-east-1")
	} else {
		for {
			cfg.Action = p.line("Upload URL (required)", "")
			err := cfg.Validate()
			if err == nil {
				break
			}
			fmt.Fprintf(p.out, "  Error: %v\n", err)
			if _, err := p.reader.Peek(1); err != nil {
				return nil, fmt.Errorf("an upload URL is required")
			}
		}
		cfg.FieldName = p.line("File field name", cfg.FieldName)
		cfg.WithCredentials = p.yesNo("Send cookies with uploads?", false)
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "File Checks (press Enter for defaults)")
	fmt.Fprintln(p.out, "--------------------------------------")
	cfg.Accept = p.line("Accepted types (e.g. .png,image/*)", "")
	cfg.Multiple = p.yesNo("Allow several files per pick?", true)
	cfg.MaxSize = p.number("Max file size in bytes (0 = unlimited)", 0)
	cfg.Gzip = p.yesNo("Gzip files before upload?", false)

	fmt.Fprintln(p.out)
	if p.yesNo("Configure proxy?", false) {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Proxy Configuration")
		fmt.Fprintln(p.out, "-------------------")
		cfg.ProxyMode = p.choice("Proxy mode", []string{"no-proxy", "system", "basic", "ntlm"}, "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = p.line("Proxy host", "")
			cfg.ProxyPort = int(p.number("Proxy port", 8080))
			cfg.ProxyUser = p.line("Proxy user (empty for none)", "")
			cfg.NoProxy = p.line("Hosts that bypass the proxy", "")
		}
	}

	if err := cfg.ValidateProxy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/nebula/upload.csv)
  2. Environment variables (NEBULA_UPLOAD_ACTION, NEBULA_PROXY_PASSWORD, HTTPS_PROXY)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}

	return cmd
}

func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Upload Settings:")
	if cfg.S3Bucket != "" {
		fmt.Fprintf(w, "  S3 Bucket:  %s\n", cfg.S3Bucket)
		fmt.Fprintf(w, "  S3 Prefix:  %s\n", cfg.S3Prefix)
		fmt.Fprintf(w, "  S3 Region:  %s\n", cfg.S3Region)
		if cfg.S3Endpoint != "" {
			fmt.Fprintf(w, "  S3 Endpoint: %s\n", cfg.S3Endpoint)
		}
		if cfg.S3AccessKeyID != "" {
			fmt.Fprintf(w, "  S3 Access Key: %s\n", cfg.S3AccessKeyID)
		} else {
			fmt.Fprintln(w, "  S3 Access Key: <default AWS credentials>")
		}
	} else {
		fmt.Fprintf(w, "  Action:     %s\n", orNotSet(cfg.Action))
	}
	fmt.Fprintf(w, "  Field Name: %s\n", cfg.FieldName)
	fmt.Fprintf(w, "  Credentials: %t\n", cfg.WithCredentials)
	for _, key := range sortedKeys(cfg.Headers) {
		// Header values often carry tokens
		fmt.Fprintf(w, "  Header %s: <set (%d chars)>\n", key, len(cfg.Headers[key]))
	}
	for _, key := range sortedKeys(cfg.Data) {
		fmt.Fprintf(w, "  Field %s: %s\n", key, cfg.Data[key])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "File Checks:")
	fmt.Fprintf(w, "  Accept:   %s\n", orNotSet(cfg.Accept))
	fmt.Fprintf(w, "  Multiple: %t\n", cfg.Multiple)
	if cfg.MaxSize > 0 {
		fmt.Fprintf(w, "  Max Size: %d bytes\n", cfg.MaxSize)
	} else {
		fmt.Fprintln(w, "  Max Size: unlimited")
	}
	fmt.Fprintf(w, "  Gzip:     %t\n", cfg.Gzip)
	if cfg.Include != "" {
		fmt.Fprintf(w, "  Include:  %s\n", cfg.Include)
	}
	if cfg.Exclude != "" {
		fmt.Fprintf(w, "  Exclude:  %s\n", cfg.Exclude)
	}
	if cfg.WatchDir != "" {
		fmt.Fprintf(w, "  Watch Dir: %s\n", cfg.WatchDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy Settings:")
	fmt.Fprintf(w, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(w, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(w, "  Proxy User: %s\n", cfg.ProxyUser)
		if cfg.ProxyPassword != "" {
			fmt.Fprintln(w, "  Proxy Password: <set>")
		} else {
			fmt.Fprintln(w, "  Proxy Password: <not set>")
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Receiver Settings:")
	fmt.Fprintf(w, "  Listen:      %s\n", cfg.ListenAddr)
	fmt.Fprintf(w, "  Storage Dir: %s\n", cfg.StorageDir)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that the action URL is reachable",
		Long: `Send a HEAD request to the action URL through the configured proxy.

Use this to verify network connectivity and proxy credentials. Any
response below 500 counts as reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Action == "" {
				return fmt.Errorf("no action URL configured (S3 targets are checked on first upload)")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if httpclient.NeedsProxyPassword(cfg) {
				if cfg.ProxyPassword, err = promptProxyPassword(cfg.ProxyUser); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "Action URL: %s\n", cfg.Action)
			fmt.Fprintln(out, "Testing connection...")

			client, err := httpclient.NewUploadClient(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create HTTP client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			status, err := checkReachable(ctx, client, cfg.Action)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}

			logger.Info().Int("status", status).Msg("Connection test successful")
			fmt.Fprintf(out, "✓ Connection SUCCESSFUL (HTTP %d)\n", status)
			return nil
		},
	}

	return cmd
}

// checkReachable sends a HEAD request to url and returns the status code.
func checkReachable(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusProxyAuthRequired:
		return resp.StatusCode, fmt.Errorf("proxy rejected credentials: %s", resp.Status)
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("server error: %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n", path)
			fmt.Fprintln(out)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: nebula-upload config init")
			}
			return nil
		},
	}

	return cmd
}

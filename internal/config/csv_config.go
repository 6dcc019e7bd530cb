package config

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nebula-ui/nebula-upload/internal/constants"
)

// Config represents the uploader configuration
type Config struct {
	// Upload request
	Action          string            `yaml:"action,omitempty"`
	FieldName       string            `yaml:"field_name,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Data            map[string]string `yaml:"data,omitempty"`
	WithCredentials bool              `yaml:"with_credentials,omitempty"`

	// File selection
	Accept   string `yaml:"accept,omitempty"`   // e.g. ".png,.jpg" or "image/*"
	Multiple bool   `yaml:"multiple,omitempty"` // Allow several files per pick
	WatchDir string `yaml:"watch_dir,omitempty"`

	// Before-upload checks
	MaxSize int64  `yaml:"max_size,omitempty"` // Bytes, 0 = unlimited
	Gzip    bool   `yaml:"gzip,omitempty"`     // Compress before sending
	Include string `yaml:"include,omitempty"`  // Comma-separated name globs, e.g. "*.dat,*.txt"
	Exclude string `yaml:"exclude,omitempty"`  // Comma-separated name globs; wins over Include

	// S3 presigned POST target (replaces Action when S3Bucket is set)
	S3Bucket   string        `yaml:"s3_bucket,omitempty"`
	S3Prefix   string        `yaml:"s3_prefix,omitempty"`
	S3Region   string        `yaml:"s3_region,omitempty"`
	S3Endpoint string        `yaml:"s3_endpoint,omitempty"` // S3-compatible stores
	S3Expires  time.Duration `yaml:"s3_expires,omitempty"`

	// Static S3 credentials; empty means the default AWS credential chain.
	// Secrets only come from the environment.
	S3AccessKeyID     string `yaml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `yaml:"-"`
	S3SessionToken    string `yaml:"-"`

	// Proxy settings
	ProxyMode      string `yaml:"proxy_mode,omitempty"` // "no-proxy", "ntlm", "basic", "system"
	ProxyHost      string `yaml:"proxy_host,omitempty"`
	ProxyPort      int    `yaml:"proxy_port,omitempty"`
	ProxyUser      string `yaml:"proxy_user,omitempty"`
	ProxyPassword  string `yaml:"-"`
	NoProxy        string `yaml:"no_proxy,omitempty"` // Comma-separated list of hosts to bypass proxy
	ProxyWarmup    bool   `yaml:"proxy_warmup,omitempty"`
	ProxyWarmupURL string `yaml:"proxy_warmup_url,omitempty"` // Defaults to Action

	// Receiver settings
	ListenAddr string `yaml:"listen_addr,omitempty"`
	StorageDir string `yaml:"storage_dir,omitempty"`
	MaxBytes   int64  `yaml:"max_bytes,omitempty"` // Receiver body limit, 0 = unlimited
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		FieldName:  constants.DefaultFieldName,
		Headers:    map[string]string{},
		Data:       map[string]string{},
		ProxyMode:  "no-proxy",
		S3Expires:  15 * time.Minute,
		ListenAddr: constants.ReceiverDefaultAddr,
		StorageDir: "uploads",
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs. "header.<Name>" and "data.<name>" keys fill
// the header and form field maps.
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	// Parse key-value pairs
	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		rawKey := strings.TrimSpace(record[0])
		key := strings.ToLower(rawKey)
		value := strings.TrimSpace(record[1])

		switch {
		case strings.HasPrefix(key, "header."):
			cfg.Headers[rawKey[len("header."):]] = value
			continue
		case strings.HasPrefix(key, "data."):
			cfg.Data[rawKey[len("data."):]] = value
			continue
		}

		switch key {
		case "action":
			cfg.Action = value
		case "field_name", "name":
			cfg.FieldName = value
		case "with_credentials":
			cfg.WithCredentials = parseBool(value)
		case "accept":
			cfg.Accept = value
		case "multiple":
			cfg.Multiple = parseBool(value)
		case "watch_dir":
			cfg.WatchDir = value
		case "max_size":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.MaxSize = v
			}
		case "gzip":
			cfg.Gzip = parseBool(value)
		case "include":
			cfg.Include = value
		case "exclude":
			cfg.Exclude = value
		case "s3_bucket":
			cfg.S3Bucket = value
		case "s3_prefix":
			cfg.S3Prefix = value
		case "s3_region":
			cfg.S3Region = value
		case "s3_endpoint":
			cfg.S3Endpoint = value
		case "s3_expires":
			if v, err := time.ParseDuration(value); err == nil {
				cfg.S3Expires = v
			}
		case "s3_access_key_id":
			cfg.S3AccessKeyID = value
		case "s3_secret_access_key", "s3_session_token":
			if value != "" {
				log.Warn().Str("key", key).Msg("S3 secrets in config files are ignored, use NEBULA_S3_SECRET_ACCESS_KEY and NEBULA_S3_SESSION_TOKEN")
			}
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			// SECURITY: Ignore proxy_password from config files
			// Proxy passwords come from NEBULA_PROXY_PASSWORD or the runtime prompt
			if value != "" {
				log.Warn().Msg("proxy_password in config file is ignored, use NEBULA_PROXY_PASSWORD or the prompt")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = parseBool(value)
		case "proxy_warmup_url":
			cfg.ProxyWarmupURL = value
		case "listen_addr":
			cfg.ListenAddr = value
		case "storage_dir":
			cfg.StorageDir = value
		case "max_bytes":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.MaxBytes = v
			}
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// SECURITY: proxy_password and S3 secrets are intentionally NOT saved to config files
	records := [][]string{
		{"action", cfg.Action},
		{"field_name", cfg.FieldName},
		{"with_credentials", strconv.FormatBool(cfg.WithCredentials)},
		{"accept", cfg.Accept},
		{"multiple", strconv.FormatBool(cfg.Multiple)},
		{"watch_dir", cfg.WatchDir},
		{"max_size", strconv.FormatInt(cfg.MaxSize, 10)},
		{"gzip", strconv.FormatBool(cfg.Gzip)},
		{"include", cfg.Include},
		{"exclude", cfg.Exclude},
		{"s3_bucket", cfg.S3Bucket},
		{"s3_prefix", cfg.S3Prefix},
		{"s3_region", cfg.S3Region},
		{"s3_endpoint", cfg.S3Endpoint},
		{"s3_expires", formatDuration(cfg.S3Expires)},
		{"s3_access_key_id", cfg.S3AccessKeyID},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"proxy_warmup_url", cfg.ProxyWarmupURL},
		{"listen_addr", cfg.ListenAddr},
		{"storage_dir", cfg.StorageDir},
		{"max_bytes", strconv.FormatInt(cfg.MaxBytes, 10)},
	}
	records = append(records, prefixed("header.", cfg.Headers)...)
	records = append(records, prefixed("data.", cfg.Data)...)

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

func prefixed(prefix string, m map[string]string) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([][]string, 0, len(keys))
	for _, k := range keys {
		records = append(records, []string{prefix + k, m[k]})
	}
	return records
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// MergeEnv applies environment overrides.
// Priority: flags > environment > config file > defaults; flags are applied by the CLI afterwards.
func (c *Config) MergeEnv() {
	if v := os.Getenv("NEBULA_UPLOAD_ACTION"); v != "" {
		c.Action = v
	}
	if v := os.Getenv("NEBULA_PROXY_PASSWORD"); v != "" {
		c.ProxyPassword = v
	}
	if v := os.Getenv("NEBULA_S3_ACCESS_KEY_ID"); v != "" {
		c.S3AccessKeyID = v
	}
	if v := os.Getenv("NEBULA_S3_SECRET_ACCESS_KEY"); v != "" {
		c.S3SecretAccessKey = v
	}
	if v := os.Getenv("NEBULA_S3_SESSION_TOKEN"); v != "" {
		c.S3SessionToken = v
	}
	if envProxy := os.Getenv("HTTPS_PROXY"); envProxy != "" && c.ProxyHost == "" {
		c.parseProxyURL(envProxy)
	}
}

// parseProxyURL parses a proxy URL from environment variable
func (c *Config) parseProxyURL(proxyURL string) {
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return
	}
	c.ProxyHost = u.Hostname()
	if port, err := strconv.Atoi(u.Port()); err == nil {
		c.ProxyPort = port
	}
	if c.ProxyHost != "" && (c.ProxyMode == "no-proxy" || c.ProxyMode == "") {
		c.ProxyMode = "system"
	}
}

// Validate checks the settings needed to upload.
func (c *Config) Validate() error {
	if c.Action == "" && c.S3Bucket == "" {
		return fmt.Errorf("an upload action URL or an S3 bucket is required")
	}
	if c.Action != "" && c.S3Bucket == "" {
		u, err := url.Parse(c.Action)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("action must be an http(s) URL, got %q", c.Action)
		}
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must not be negative")
	}
	if c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey == "" {
		return fmt.Errorf("s3_access_key_id is set but NEBULA_S3_SECRET_ACCESS_KEY is not")
	}
	return c.ValidateProxy()
}

// ValidateProxy checks the proxy settings.
func (c *Config) ValidateProxy() error {
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("unsupported proxy mode: %s", c.ProxyMode)
	}
	if c.ProxyPort < 0 || c.ProxyPort > 65535 {
		return fmt.Errorf("proxy_port out of range: %d", c.ProxyPort)
	}
	return nil
}

// ValidateReceiver checks the settings needed to run the receiver.
func (c *Config) ValidateReceiver() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir is required")
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("max_bytes must not be negative")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadConfigCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "full config",
			content: `key,value
action,https://upload.example.com/files
field_name,attachment
with_credentials,true
accept,".png,image/*"
multiple,1
max_size,1048576
gzip,true
header.Authorization,Bearer abc
data.folder,inbox
proxy_mode,basic
proxy_host,proxy.example.com
proxy_port,3128
s3_expires,5m
s3_access_key_id,AKIAEXAMPLE
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Action != "https://upload.example.com/files" {
					t.Errorf("Action = %q", cfg.Action)
				}
				if cfg.FieldName != "attachment" {
					t.Errorf("FieldName = %q, want %q", cfg.FieldName, "attachment")
				}
				if !cfg.WithCredentials || !cfg.Multiple || !cfg.Gzip {
					t.Errorf("boolean flags not parsed: %+v", cfg)
				}
				if cfg.Accept != ".png,image/*" {
					t.Errorf("Accept = %q", cfg.Accept)
				}
				if cfg.MaxSize != 1048576 {
					t.Errorf("MaxSize = %d, want 1048576", cfg.MaxSize)
				}
				if cfg.Headers["Authorization"] != "Bearer abc" {
					t.Errorf("Headers = %v", cfg.Headers)
				}
				if cfg.Data["folder"] != "inbox" {
					t.Errorf("Data = %v", cfg.Data)
				}
				if cfg.ProxyMode != "basic" || cfg.ProxyHost != "proxy.example.com" || cfg.ProxyPort != 3128 {
					t.Errorf("proxy settings = %s %s:%d", cfg.ProxyMode, cfg.ProxyHost, cfg.ProxyPort)
				}
				if cfg.S3Expires != 5*time.Minute {
					t.Errorf("S3Expires = %v, want 5m", cfg.S3Expires)
				}
				if cfg.S3AccessKeyID != "AKIAEXAMPLE" {
					t.Errorf("S3AccessKeyID = %q", cfg.S3AccessKeyID)
				}
			},
		},
		{
			name:    "s3 secrets are ignored",
			content: "s3_secret_access_key,secret\ns3_session_token,token\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.S3SecretAccessKey != "" || cfg.S3SessionToken != "" {
					t.Error("S3 secrets must not be read from config files")
				}
			},
		},
		{
			name:    "proxy password is ignored",
			content: "proxy_password,secret\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.ProxyPassword != "" {
					t.Error("proxy_password must not be read from config files")
				}
			},
		},
		{
			name:    "malformed csv",
			content: "action,\"unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "upload.csv", tt.content)
			cfg, err := LoadConfigCSV(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfigCSV() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	// LoadConfigCSV with empty path returns defaults
	cfg, err := LoadConfigCSV("")
	if err != nil {
		t.Fatalf("LoadConfigCSV(\"\") error = %v", err)
	}
	if cfg.FieldName != "file" {
		t.Errorf("FieldName default = %q, want %q", cfg.FieldName, "file")
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("ProxyMode default = %q, want no-proxy", cfg.ProxyMode)
	}

	// Missing file also returns defaults
	cfg, err = LoadConfigCSV(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatalf("LoadConfigCSV(missing) error = %v", err)
	}
	if cfg.ListenAddr == "" {
		t.Error("ListenAddr should have default")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"upload.csv", "upload.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Action = "https://upload.example.com/files"
			cfg.Headers["X-Team"] = "infra"
			cfg.Data["folder"] = "inbox"
			cfg.MaxSize = 42
			cfg.ProxyPassword = "secret"

			path := filepath.Join(t.TempDir(), "nested", name)
			if err := Save(cfg, path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.Action != cfg.Action {
				t.Errorf("Action = %q, want %q", loaded.Action, cfg.Action)
			}
			if loaded.Headers["X-Team"] != "infra" || loaded.Data["folder"] != "inbox" {
				t.Errorf("maps not preserved: headers=%v data=%v", loaded.Headers, loaded.Data)
			}
			if loaded.MaxSize != 42 {
				t.Errorf("MaxSize = %d, want 42", loaded.MaxSize)
			}
			if loaded.S3Expires != cfg.S3Expires {
				t.Errorf("S3Expires = %v, want %v", loaded.S3Expires, cfg.S3Expires)
			}
			if loaded.ProxyPassword != "" {
				t.Error("ProxyPassword must not be persisted")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "valid action",
			config: &Config{Action: "https://upload.example.com/files"},
		},
		{
			name:   "s3 bucket instead of action",
			config: &Config{S3Bucket: "uploads"},
		},
		{
			name:    "missing action",
			config:  &Config{},
			wantErr: true,
		},
		{
			name:    "action is not a URL",
			config:  &Config{Action: "upload.example.com"},
			wantErr: true,
		},
		{
			name:    "unknown proxy mode",
			config:  &Config{Action: "https://upload.example.com", ProxyMode: "socks"},
			wantErr: true,
		},
		{
			name:    "s3 access key without secret",
			config:  &Config{S3Bucket: "uploads", S3AccessKeyID: "AKIAEXAMPLE"},
			wantErr: true,
		},
		{
			name:   "s3 static credentials",
			config: &Config{S3Bucket: "uploads", S3AccessKeyID: "AKIAEXAMPLE", S3SecretAccessKey: "secret"},
		},
		{
			name:    "negative max size",
			config:  &Config{Action: "https://upload.example.com", MaxSize: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("NEBULA_UPLOAD_ACTION", "https://env.example.com/upload")
	t.Setenv("NEBULA_PROXY_PASSWORD", "hunter2")
	t.Setenv("HTTPS_PROXY", "http://proxy.internal:8080")
	t.Setenv("NEBULA_S3_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("NEBULA_S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("NEBULA_S3_SESSION_TOKEN", "token")

	cfg := Default()
	cfg.MergeEnv()

	if cfg.Action != "https://env.example.com/upload" {
		t.Errorf("Action from env = %q", cfg.Action)
	}
	if cfg.ProxyPassword != "hunter2" {
		t.Errorf("ProxyPassword from env = %q", cfg.ProxyPassword)
	}
	if cfg.ProxyHost != "proxy.internal" || cfg.ProxyPort != 8080 {
		t.Errorf("proxy from env = %s:%d", cfg.ProxyHost, cfg.ProxyPort)
	}
	if cfg.ProxyMode != "system" {
		t.Errorf("ProxyMode = %q, want system", cfg.ProxyMode)
	}
	if cfg.S3AccessKeyID != "AKIAEXAMPLE" || cfg.S3SecretAccessKey != "secret" || cfg.S3SessionToken != "token" {
		t.Errorf("S3 credentials from env = %q %q %q", cfg.S3AccessKeyID, cfg.S3SecretAccessKey, cfg.S3SessionToken)
	}
}

func TestValidateReceiver(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateReceiver(); err != nil {
		t.Errorf("default receiver config should be valid: %v", err)
	}
	cfg.StorageDir = ""
	if err := cfg.ValidateReceiver(); err == nil {
		t.Error("expected error for empty storage_dir")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.HTTPMaxRetries != 3 {
		t.Errorf("HTTPMaxRetries = %d, want 3", cfg.HTTPMaxRetries)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eduportal.yaml")
	content := "port: \"9000\"\noidc_realm: family\nreminder_lead: 30m\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9100" {
		t.Errorf("ServerPort = %q, want env override 9100", cfg.ServerPort)
	}
	if cfg.OIDCRealm != "family" {
		t.Errorf("OIDCRealm = %q, want family", cfg.OIDCRealm)
	}
	if cfg.ReminderLead != 30*time.Minute {
		t.Errorf("ReminderLead = %v, want 30m", cfg.ReminderLead)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid HTTP_TIMEOUT")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		tz      string
		want    string
		wantErr bool
	}{
		{tz: "UTC", want: "UTC"},
		{tz: "Local", want: "Local"},
		{tz: "Mars/Olympus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tz, func(t *testing.T) {
			cfg := &Config{Timezone: tt.tz}
			loc, err := cfg.Location()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Location() error = %v", err)
			}
			if loc.String() != tt.want {
				t.Errorf("Location() = %s, want %s", loc, tt.want)
			}
		})
	}
}

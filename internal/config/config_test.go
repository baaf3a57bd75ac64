package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"POSTGRES_DSN", "NATS_URL", "TRANSFER_DELAY_MS", "MAX_UPLOAD_BYTES", "API_RATE_LIMIT_RPS", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("expected optional adapters disabled by default, got dsn=%q nats=%q", cfg.PostgresDSN, cfg.NATSURL)
	}
	if cfg.TransferDelayMS != 1500 {
		t.Fatalf("expected default transfer delay 1500ms, got %d", cfg.TransferDelayMS)
	}
	if cfg.MaxUploadBytes != 64<<20 {
		t.Fatalf("expected default upload limit 64 MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", cfg.LogFormat)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("TRANSFER_DELAY_MS", "250")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("FORM_CACHE_SIZE", "not-a-number")

	cfg := Load()
	if cfg.TransferDelayMS != 250 {
		t.Fatalf("expected transfer delay override, got %d", cfg.TransferDelayMS)
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("expected upload limit override, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
	if cfg.FormCacheSize != 1024 {
		t.Fatalf("invalid int must fall back to default, got %d", cfg.FormCacheSize)
	}
}

func TestLoadCatalogDefaultsWithoutPath(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	required := 0
	for _, slot := range catalog {
		if slot.Required() {
			required++
		}
		if slot.MaxFileSize != domain.DefaultMaxFileSize {
			t.Fatalf("slot %s: expected 10 MiB limit, got %d", slot.Name, slot.MaxFileSize)
		}
	}
	if len(catalog) != 4 || required != 3 {
		t.Fatalf("expected 4 slots with 3 required, got %d/%d", len(catalog), required)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.yaml")
	content := `
slots:
  - name: identity
    title: Identity Document
    accepted: [pdf, jpeg]
    max_files: 2
    max_file_size: 5 MiB
  - name: logo
    accepted: [PNG]
    optional: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	got, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	want := []domain.SlotConfig{
		{
			Name:        domain.SlotIdentity,
			Title:       "Identity Document",
			Accepted:    []domain.FileType{domain.FileTypePDF, domain.FileTypeJPG},
			MaxFiles:    2,
			MaxFileSize: 5 << 20,
		},
		{
			Name:        domain.SlotLogo,
			Title:       "logo",
			Accepted:    []domain.FileType{domain.FileTypePNG},
			Optional:    true,
			MaxFiles:    domain.DefaultMaxFiles,
			MaxFileSize: domain.DefaultMaxFileSize,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadCatalog() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCatalogRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"empty":        ``,
		"unknown tag":  "slots:\n  - name: tax\n    accepted: [gif]\n",
		"no types":     "slots:\n  - name: tax\n",
		"bad name":     "slots:\n  - name: Tax Certificate\n    accepted: [pdf]\n",
		"duplicate":    "slots:\n  - name: tax\n    accepted: [pdf]\n  - name: tax\n    accepted: [pdf]\n",
		"bad size":     "slots:\n  - name: tax\n    accepted: [pdf]\n    max_file_size: lots\n",
		"unknown key":  "slots:\n  - name: tax\n    accepted: [pdf]\n    colour: red\n",
		"negative cap": "slots:\n  - name: tax\n    accepted: [pdf]\n    max_files: -1\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(raw)); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

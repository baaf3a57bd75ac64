package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

var slotNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// DefaultCatalog is the slot set used when no catalog file is configured.
func DefaultCatalog() []domain.SlotConfig {
	all := []domain.FileType{domain.FileTypePDF, domain.FileTypeJPG, domain.FileTypePNG}
	return []domain.SlotConfig{
		{
			Name:        domain.SlotIdentity,
			Title:       "Identity Document",
			Description: "Passport or national ID card of the authorized representative.",
			Accepted:    all,
			MaxFiles:    2,
			MaxFileSize: domain.DefaultMaxFileSize,
		},
		{
			Name:        domain.SlotRegistration,
			Title:       "Business Registration",
			Description: "Certificate of incorporation or trade register extract.",
			Accepted:    all,
			MaxFiles:    3,
			MaxFileSize: domain.DefaultMaxFileSize,
		},
		{
			Name:        domain.SlotTax,
			Title:       "Tax Certificate",
			Description: "Tax registration or VAT certificate.",
			Accepted:    all,
			MaxFiles:    1,
			MaxFileSize: domain.DefaultMaxFileSize,
		},
		{
			Name:        domain.SlotLogo,
			Title:       "Company Logo",
			Description: "Optional. Shown on your public profile.",
			Accepted:    []domain.FileType{domain.FileTypeJPG, domain.FileTypePNG},
			Optional:    true,
			MaxFiles:    1,
			MaxFileSize: domain.DefaultMaxFileSize,
		},
	}
}

type catalogFile struct {
	Slots []slotEntry `yaml:"slots"`
}

type slotEntry struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Accepted    []string `yaml:"accepted"`
	Optional    bool     `yaml:"optional"`
	MaxFiles    int      `yaml:"max_files"`
	MaxFileSize string   `yaml:"max_file_size"`
}

// LoadCatalog returns DefaultCatalog for an empty path, otherwise the slots
// declared in the YAML file.
func LoadCatalog(path string) ([]domain.SlotConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slot catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) ([]domain.SlotConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse slot catalog", err)
	}
	if len(file.Slots) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse slot catalog", errors.New("catalog declares no slots"))
	}

	seen := make(map[string]struct{}, len(file.Slots))
	out := make([]domain.SlotConfig, 0, len(file.Slots))
	for i, entry := range file.Slots {
		cfg, err := entry.toSlotConfig()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, fmt.Sprintf("slot catalog entry %d", i), err)
		}
		if _, dup := seen[string(cfg.Name)]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse slot catalog", fmt.Errorf("duplicate slot %q", cfg.Name))
		}
		seen[string(cfg.Name)] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

func (e slotEntry) toSlotConfig() (domain.SlotConfig, error) {
	name := strings.TrimSpace(e.Name)
	if !slotNamePattern.MatchString(name) {
		return domain.SlotConfig{}, fmt.Errorf("invalid slot name %q", e.Name)
	}
	if len(e.Accepted) == 0 {
		return domain.SlotConfig{}, fmt.Errorf("slot %q accepts no file types", name)
	}
	accepted := make([]domain.FileType, 0, len(e.Accepted))
	for _, tag := range e.Accepted {
		ft, err := domain.ParseFileType(tag)
		if err != nil {
			return domain.SlotConfig{}, fmt.Errorf("slot %q: %w", name, err)
		}
		accepted = append(accepted, ft)
	}
	if e.MaxFiles < 0 {
		return domain.SlotConfig{}, fmt.Errorf("slot %q: max_files must not be negative", name)
	}

	var maxSize int64
	if strings.TrimSpace(e.MaxFileSize) != "" {
		parsed, err := humanize.ParseBytes(e.MaxFileSize)
		if err != nil {
			return domain.SlotConfig{}, fmt.Errorf("slot %q: max_file_size: %w", name, err)
		}
		maxSize = int64(parsed)
	}

	return domain.SlotConfig{
		Name:        domain.SlotName(name),
		Title:       strings.TrimSpace(e.Title),
		Description: strings.TrimSpace(e.Description),
		Accepted:    accepted,
		Optional:    e.Optional,
		MaxFiles:    e.MaxFiles,
		MaxFileSize: maxSize,
	}.WithDefaults(), nil
}

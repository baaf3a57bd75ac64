package domain

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultMaxFileSize is the per-file ceiling applied when a slot does not set one.
const DefaultMaxFileSize int64 = 10 << 20

// DefaultMaxFiles is the per-slot file cap applied when a slot does not set one.
const DefaultMaxFiles = 1

type SlotName string

const (
	SlotIdentity     SlotName = "identity"
	SlotRegistration SlotName = "registration"
	SlotTax          SlotName = "tax"
	SlotLogo         SlotName = "logo"
)

// FileType is an accepted type tag shown to the user (PDF, JPG, PNG).
type FileType string

const (
	FileTypePDF FileType = "PDF"
	FileTypeJPG FileType = "JPG"
	FileTypePNG FileType = "PNG"
)

var fileTypeExtensions = map[FileType][]string{
	FileTypePDF: {".pdf"},
	FileTypeJPG: {".jpg", ".jpeg"},
	FileTypePNG: {".png"},
}

// ParseFileType resolves a tag case-insensitively.
func ParseFileType(raw string) (FileType, error) {
	tag := FileType(strings.ToUpper(strings.TrimSpace(raw)))
	if tag == "JPEG" {
		tag = FileTypeJPG
	}
	if _, ok := fileTypeExtensions[tag]; !ok {
		return "", WrapError(ErrInvalidInput, "parse file type", fmt.Errorf("unknown type tag %q", raw))
	}
	return tag, nil
}

// Extensions lists the lower-case extensions, dot included, that map to the tag.
func (t FileType) Extensions() []string {
	exts := fileTypeExtensions[t]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

type SlotConfig struct {
	Name        SlotName   `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Accepted    []FileType `json:"accepted"`
	Optional    bool       `json:"optional"`
	MaxFiles    int        `json:"max_files"`
	MaxFileSize int64      `json:"max_file_size"`
}

// WithDefaults fills the zero-valued limits.
func (c SlotConfig) WithDefaults() SlotConfig {
	out := c
	if out.MaxFiles <= 0 {
		out.MaxFiles = DefaultMaxFiles
	}
	if out.MaxFileSize <= 0 {
		out.MaxFileSize = DefaultMaxFileSize
	}
	if strings.TrimSpace(out.Title) == "" {
		out.Title = string(out.Name)
	}
	out.Accepted = append([]FileType(nil), c.Accepted...)
	return out
}

func (c SlotConfig) Required() bool {
	return !c.Optional
}

// AcceptsExtension reports whether ext (with leading dot, any case) maps to one
// of the accepted tags.
func (c SlotConfig) AcceptsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, tag := range c.Accepted {
		for _, candidate := range fileTypeExtensions[tag] {
			if candidate == ext {
				return true
			}
		}
	}
	return false
}

func (c SlotConfig) AcceptedExtensions() []string {
	out := make([]string, 0, len(c.Accepted)+1)
	for _, tag := range c.Accepted {
		out = append(out, fileTypeExtensions[tag]...)
	}
	return out
}

func (c SlotConfig) AcceptedLabel() string {
	tags := make([]string, 0, len(c.Accepted))
	for _, tag := range c.Accepted {
		tags = append(tags, string(tag))
	}
	return strings.Join(tags, ", ")
}

// FileCandidate is one element of a batch presented to a slot. Open may be
// called more than once; every call must return the full content.
type FileCandidate struct {
	Filename  string
	Size      int64
	MediaType string
	Open      func() (io.ReadCloser, error)
}

// CandidateFromBytes builds an in-memory candidate.
func CandidateFromBytes(filename, mediaType string, data []byte) FileCandidate {
	return FileCandidate{
		Filename:  filename,
		Size:      int64(len(data)),
		MediaType: mediaType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type UploadedFile struct {
	ID         string    `json:"id"`
	Slot       SlotName  `json:"slot"`
	Filename   string    `json:"filename"`
	MediaType  string    `json:"media_type"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"-"`
	Preview    string    `json:"preview,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// FormData is the per-slot file set handed to the transfer backend.
type FormData map[SlotName][]UploadedFile

func (d FormData) FileCount() int {
	total := 0
	for _, files := range d {
		total += len(files)
	}
	return total
}

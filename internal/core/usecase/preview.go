package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// PreviewGenerator renders image candidates into base64 data URIs.
type PreviewGenerator struct {
	concurrency int
}

func NewPreviewGenerator(concurrency int) *PreviewGenerator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &PreviewGenerator{concurrency: concurrency}
}

// Generate returns the preview of one candidate, or "" when it is not an image.
func (g *PreviewGenerator) Generate(ctx context.Context, candidate domain.FileCandidate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if candidate.Open == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "generate preview", fmt.Errorf("%s has no content", candidate.Filename))
	}

	declared := baseMediaType(candidate.MediaType)
	if declared == "application/octet-stream" {
		declared = ""
	}
	if declared != "" && !isImage(declared) {
		return "", nil
	}

	rc, err := candidate.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", candidate.Filename, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", candidate.Filename, err)
	}

	mediaType := declared
	if mediaType == "" {
		mediaType = baseMediaType(mimetype.Detect(raw).String())
		if !isImage(mediaType) {
			return "", nil
		}
	}

	var buf bytes.Buffer
	buf.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(raw)))
	buf.WriteString("data:")
	buf.WriteString(mediaType)
	buf.WriteString(";base64,")
	buf.WriteString(base64.StdEncoding.EncodeToString(raw))
	return buf.String(), nil
}

// GenerateBatch renders every candidate concurrently. Results follow the
// order of candidates, not completion order.
func (g *PreviewGenerator) GenerateBatch(ctx context.Context, candidates []domain.FileCandidate) ([]string, error) {
	previews := make([]string, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.concurrency)

	for i, candidate := range candidates {
		group.Go(func() error {
			preview, err := g.Generate(groupCtx, candidate)
			if err != nil {
				return err
			}
			previews[i] = preview
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("generate previews: %w", err)
	}
	return previews, nil
}

func baseMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return parsed
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

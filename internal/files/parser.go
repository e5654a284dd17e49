// Package files parses uploaded attachments from a local object root.
// It handles the text-shaped formats the platform accepts for coaching
// material; anything else is an error the caller isolates per file.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Parser reads attachment files from a local object-storage root.
type Parser struct {
	root     string
	maxBytes int64
	logger   zerolog.Logger
}

// NewParser creates a parser rooted at root. Files larger than maxBytes
// are rejected rather than partially read.
func NewParser(root string, maxBytes int64, logger zerolog.Logger) *Parser {
	return &Parser{
		root:     root,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "files").Logger(),
	}
}

// supportedMimeTypes are the formats parsed as plain UTF-8 text.
var supportedMimeTypes = map[string]bool{
	"text/plain":       true,
	"text/markdown":    true,
	"text/csv":         true,
	"application/json": true,
}

// Parse extracts the text of the file at objectPath. The object path is
// always resolved inside the root; ".." segments cannot escape it.
func (p *Parser) Parse(ctx context.Context, objectPath, mimeType, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime := mimeType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))
	if !supportedMimeTypes[mime] {
		return "", fmt.Errorf("unsupported mime type %q for file %q", mimeType, originalName)
	}

	full := filepath.Join(p.root, filepath.Clean("/"+objectPath))

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", originalName, err)
	}
	if info.Size() > p.maxBytes {
		return "", fmt.Errorf("file %q is %d bytes, exceeds limit of %d", originalName, info.Size(), p.maxBytes)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", originalName, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %q is not valid UTF-8 text", originalName)
	}

	p.logger.Debug().
		Str("file", originalName).
		Int("bytes", len(data)).
		Msg("attachment parsed")

	return string(data), nil
}

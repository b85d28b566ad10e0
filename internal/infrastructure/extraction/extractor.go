// Package extraction pulls searchable text out of uploaded documents for
// date extraction and classification.
package extraction

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/opsdesk/filetrack/pkg/errors"
)

// maxExtractBytes caps how much text is read from any one document.
const maxExtractBytes = 64 * 1024

// Extractor turns one document format into text.
type Extractor interface {
	// Extensions lists the lowercase file extensions this extractor
	// handles, dot included.
	Extensions() []string
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// Registry routes documents to the extractor for their extension.  Formats
// without a registered extractor are tolerated: intake proceeds without
// extracted text.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry builds a registry with the built-in plain-text extractor.
func NewRegistry(extra ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(plainText{})
	for _, e := range extra {
		r.Register(e)
	}
	return r
}

// Register adds an extractor, replacing any previous one for its extensions.
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Extract pulls text from the document.  ok=false means no extractor handles
// the format, which is not an error.
func (r *Registry) Extract(ctx context.Context, filename string, rd io.Reader) (string, bool, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	e, found := r.byExt[ext]
	if !found {
		return "", false, nil
	}
	text, err := e.Extract(ctx, io.LimitReader(rd, maxExtractBytes))
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrCodeInternal, "extracting text from %s", filename)
	}
	return text, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Plain text
// ─────────────────────────────────────────────────────────────────────────────

// plainText handles .txt documents.  Binary-looking content is rejected so a
// mislabelled upload does not feed garbage into date extraction.
type plainText struct{}

func (plainText) Extensions() []string { return []string{".txt"} }

func (plainText) Extract(_ context.Context, r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxExtractBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) || strings.ContainsRune(line, '\x00') {
			return "", errors.New(errors.ErrCodeValidation, "document is not valid text")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

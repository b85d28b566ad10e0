// Package classifier calls the external document classification service
// that suggests a priority and document date for uploaded files.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opsdesk/filetrack/internal/application/intake"
	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// maxTextBytes caps how much document text is sent per request.
const maxTextBytes = 16 * 1024

// Client talks to the classification service over HTTP.  It implements the
// intake service's classifier port.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   logging.Logger
}

// NewClient builds a classifier client.  Returns nil when no endpoint is
// configured, which the intake resolver treats as "always fall back".
func NewClient(cfg config.ClassifierConfig, logger logging.Logger) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("classifier"),
	}
}

var _ intake.Classifier = (*Client)(nil)

type classifyRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type classifyResponse struct {
	Priority     string `json:"priority"`
	DocumentDate string `json:"document_date"`
}

// Classify sends the document text for analysis.  Connection and server
// errors surface as ErrCodeClassifierUnavailable; responses that cannot be
// decoded as ErrCodeClassifierMalformed.  The resolver absorbs both.
func (c *Client) Classify(ctx context.Context, filename, text string) (*intake.Classification, error) {
	if len(text) > maxTextBytes {
		cut := maxTextBytes
		// Back off to a rune boundary so the JSON payload stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	body, err := json.Marshal(classifyRequest{Filename: filename, Text: text})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding classify request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "building classify request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassifierUnavailable, "calling classifier")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeClassifierUnavailable,
			"classifier returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassifierUnavailable, "reading classifier response")
	}

	var out classifyResponse
	if err := json.Unmarshal(extractVerdict(raw), &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassifierMalformed, "decoding classifier verdict")
	}
	if out.Priority == "" {
		return nil, errors.New(errors.ErrCodeClassifierMalformed, "classifier verdict has no priority")
	}
	return &intake.Classification{
		Priority:     out.Priority,
		DocumentDate: out.DocumentDate,
	}, nil
}

// extractVerdict pulls the JSON object out of a classifier response.  The
// service wraps verdicts in markdown fences ("```json\n{...}\n```") or leads
// with prose, so after fence stripping the span from the first "{" to the
// last "}" is taken as the payload.
func extractVerdict(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "{") {
			// Drop the language tag line ("json").
			s = s[i+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	if start := strings.IndexByte(s, '{'); start >= 0 {
		if end := strings.LastIndexByte(s, '}'); end > start {
			s = s[start : end+1]
		}
	}
	return []byte(s)
}

// String identifies the client in health listings.
func (c *Client) String() string {
	return fmt.Sprintf("classifier(%s)", c.endpoint)
}

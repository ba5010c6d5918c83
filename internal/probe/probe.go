// Package probe fetches a document over HTTP and decodes it. Failures are
// returned as raw causes for the caller to classify.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5 * 1024 * 1024

	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrEmptyBody is the cause of a successful response with nothing to decode
var ErrEmptyBody = pkgerrors.New("empty response body")

type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Result describes a successful probe
type Result struct {
	URL      string
	Status   int
	Format   string
	Value    any
	Duration time.Duration
}

type Prober struct {
	client *http.Client
	cfg    Config
}

// New returns a Prober using client, or a fresh client when client is nil
func New(cfg Config, client *http.Client) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if client == nil {
		client = &http.Client{}
	}

	return &Prober{client: client, cfg: cfg}
}

// Probe fetches rawURL and decodes its body as YAML when the server says so
// and as JSON otherwise.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*Result, error) {
	target, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.WithStack(errors.NewTransportError(errors.StatusProtocolError,
			"unexpected status "+resp.Status, nil))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if int64(len(body)) > p.cfg.MaxBodyBytes {
		return nil, pkgerrors.WithStack(errors.NewTransportError(errors.StatusMessageLengthLimitExceeded,
			fmt.Sprintf("response body exceeds %d bytes", p.cfg.MaxBodyBytes), nil))
	}

	format := formatOf(resp.Header.Get("Content-Type"))
	value, err := decode(format, body)
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:      target.String(),
		Status:   resp.StatusCode,
		Format:   format,
		Value:    value,
		Duration: time.Since(start),
	}, nil
}

func validateURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.NewArgumentError("url", "must not be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewArgumentError("url", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewArgumentError("url", "scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.NewArgumentError("url", "missing host")
	}

	return u, nil
}

func formatOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	if strings.Contains(mediaType, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

func decode(format string, body []byte) (any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.NewSerializationError(format, ErrEmptyBody)
	}

	var value any
	switch format {
	case FormatYAML:
		// yaml.v3 reports syntax problems as plain errors
		if err := yaml.Unmarshal(body, &value); err != nil {
			return nil, errors.NewSerializationError(format, err)
		}
	default:
		if err := json.Unmarshal(body, &value); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
	}

	return value, nil
}

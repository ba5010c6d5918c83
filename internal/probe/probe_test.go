package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, contentType string, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestProbeDecodes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantFormat  string
		want        any
	}{
		{
			name:        "json",
			contentType: "application/json; charset=utf-8",
			body:        `{"status":"ok","ready":true}`,
			wantFormat:  probe.FormatJSON,
			want:        map[string]any{"status": "ok", "ready": true},
		},
		{
			name:       "json without content type",
			body:       `[1,2]`,
			wantFormat: probe.FormatJSON,
			want:       []any{1.0, 2.0},
		},
		{
			name:        "yaml",
			contentType: "application/yaml",
			body:        "status: ok\nready: true\n",
			wantFormat:  probe.FormatYAML,
			want:        map[string]any{"status": "ok", "ready": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := serve(t, tt.contentType, http.StatusOK, tt.body)

			res, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), url)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, tt.wantFormat, res.Format)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestProbeFailuresClassify(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
		want        errors.ErrorCode
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: "down", want: errors.ErrIoError},
		{name: "not found", status: http.StatusNotFound, want: errors.ErrIoError},
		{name: "malformed json", status: http.StatusOK, body: `{"status":`, want: errors.ErrJSONError},
		{name: "malformed yaml", contentType: "text/yaml", status: http.StatusOK, body: "key: [unclosed", want: errors.ErrJSONError},
		{name: "empty body", status: http.StatusOK, body: "  \n", want: errors.ErrJSONError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := serve(t, tt.contentType, tt.status, tt.body)

			_, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), url)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.Classify(err))
		})
	}
}

func TestProbeStatusIsProtocolError(t *testing.T) {
	url := serve(t, "", http.StatusBadGateway, "")

	_, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), url)
	require.Error(t, err)

	status, ok := errors.TransportStatusOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.StatusProtocolError, status)
	assert.Contains(t, err.Error(), "502")
}

func TestProbeBodyLimit(t *testing.T) {
	url := serve(t, "application/json", http.StatusOK, `{"padding":"`+strings.Repeat("x", 64)+`"}`)

	_, err := probe.New(probe.Config{MaxBodyBytes: 16}, nil).Probe(context.Background(), url)
	require.Error(t, err)

	status, ok := errors.TransportStatusOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.StatusMessageLengthLimitExceeded, status)
	assert.Equal(t, errors.ErrIoError, errors.Classify(err))
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := probe.New(probe.Config{Timeout: 50 * time.Millisecond}, nil).Probe(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTimeout, errors.Classify(err))
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, errors.ErrIoError, errors.Classify(err))
}

func TestProbeRequestedCancellationIsUnknown(t *testing.T) {
	url := serve(t, "application/json", http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := probe.New(probe.DefaultConfig(), nil).Probe(ctx, url)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUnknownError, errors.Classify(err))
}

func TestProbeRejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://example.com/x", "http://", "://missing-scheme", "localhost:8080"} {
		t.Run(raw, func(t *testing.T) {
			_, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), raw)
			require.Error(t, err)

			var argErr *errors.ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, "url", argErr.Name)
			assert.Equal(t, errors.ErrParameterError, errors.Classify(err))
		})
	}
}

func TestProbeErrorsCarryTrace(t *testing.T) {
	url := serve(t, "", http.StatusInternalServerError, "")

	_, err := probe.New(probe.DefaultConfig(), nil).Probe(context.Background(), url)
	require.Error(t, err)

	wrapped := errors.New().Wrap(err)
	assert.Contains(t, wrapped.Trace(), "probe.(*Prober).Probe")
}

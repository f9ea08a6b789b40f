package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
)

type recorded struct {
	path   string
	accept string
	form   url.Values
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		reqs = append(reqs, recorded{path: r.URL.Path, accept: r.Header.Get("Accept"), form: r.PostForm})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{Store: config.StoreConfig{
		QueryURL:  srv.URL + "/query",
		UpdateURL: srv.URL + "/update",
	}}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), &reqs
}

func TestClient_Update(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Update(context.Background(), "INSERT DATA { <urn:a> <urn:b> <urn:c> }")
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/update", (*reqs)[0].path)
	assert.Equal(t, "INSERT DATA { <urn:a> <urn:b> <urn:c> }", (*reqs)[0].form.Get("update"))
}

func TestClient_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Parse error: line 1"))
	})

	err := c.Update(context.Background(), "garbage")
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.Equal(t, "Parse error: line 1", appErr.Details["body"])
	assert.Equal(t, http.StatusBadRequest, appErr.Details["status"])
}

func TestClient_Construct(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/n-triples")
		_, _ = w.Write([]byte("<urn:s> <urn:p> \"v\" .\n<urn:s> <urn:q> <urn:o> .\n"))
	})

	g, err := c.Construct(context.Background(), "CONSTRUCT WHERE { ?s ?p ?o }", WithDefaultGraph("urn:g"))
	require.NoError(t, err)
	assert.Len(t, g, 2)
	assert.True(t, g.Has("urn:s", "urn:q", "urn:o"))

	req := (*reqs)[0]
	assert.Equal(t, "/query", req.path)
	assert.Equal(t, "application/n-triples", req.accept)
	assert.Equal(t, []string{"urn:g"}, req.form["default-graph-uri"])
}

func TestClient_Select(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["commit", "parent"]},
			"results": {"bindings": [
				{"commit": {"type": "uri", "value": "urn:c2"}, "parent": {"type": "uri", "value": "urn:c1"}},
				{"commit": {"type": "uri", "value": "urn:c1"}}
			]}
		}`))
	})

	res, err := c.Select(context.Background(), "SELECT * { ?commit ?p ?parent }")
	require.NoError(t, err)
	assert.Equal(t, []string{"commit", "parent"}, res.Head.Vars)
	assert.Equal(t, []string{"urn:c2", "urn:c1"}, res.Column("commit"))
	assert.Equal(t, []string{"urn:c1"}, res.Column("parent"))
	assert.False(t, res.Results.Bindings[1].Bound("parent"))
	assert.Equal(t, "urn:c1", res.Results.Bindings[0].Get("parent"))
}

func TestClient_Ask(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    bool
		wantErr bool
	}{
		{"true", `{"head": {}, "boolean": true}`, true, false},
		{"false", `{"head": {}, "boolean": false}`, false, false},
		{"missing boolean", `{"head": {}}`, false, true},
		{"not json", `<sparql/>`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.Ask(context.Background(), "ASK {}")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Forward(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte("<urn:s> <urn:p> <urn:o> ."))
	})

	resp, err := c.Forward(context.Background(), "DESCRIBE <urn:s>", "text/turtle")
	require.NoError(t, err)
	assert.Equal(t, "text/turtle", resp.ContentType)
	assert.Equal(t, "<urn:s> <urn:p> <urn:o> .", string(resp.Body))
	assert.Equal(t, "text/turtle", (*reqs)[0].accept)
}

func TestClient_RateLimit(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{Store: config.StoreConfig{
		QueryURL:  srv.URL + "/query",
		UpdateURL: srv.URL + "/update",
		RateLimit: 0.001,
		RateBurst: 1,
	}}
	c := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, c.Update(context.Background(), "CLEAR DEFAULT"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := c.Update(ctx, "CLEAR DEFAULT")
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
	assert.Equal(t, 1, hits)
}

// Package store is the client for the backing SPARQL 1.1 service.
//
// Queries and updates are sent with the SPARQL protocol's form encoding. A
// non-success response is surfaced as an upstream error carrying the store's
// response body; nothing is retried.
package store

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/version"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/tracing"
)

var Module = fx.Module("store",
	fx.Provide(
		NewClient,
		func(c *Client) Executor { return c },
	),
)

// Executor runs SPARQL against the store.
type Executor interface {
	Update(ctx context.Context, update string) error
	Construct(ctx context.Context, query string, opts ...Option) (rdfio.Graph, error)
	Select(ctx context.Context, query string, opts ...Option) (*Results, error)
	Ask(ctx context.Context, query string, opts ...Option) (bool, error)
	// Forward runs a query and returns the store's response as is, for
	// relaying to a client.
	Forward(ctx context.Context, query, accept string, opts ...Option) (*Response, error)
}

// Response is a raw query response.
type Response struct {
	ContentType string
	Body        []byte
}

// Option adjusts a query request.
type Option func(url.Values)

// WithDefaultGraph sets the dataset's default graph.
func WithDefaultGraph(iri string) Option {
	return func(v url.Values) { v.Add("default-graph-uri", iri) }
}

// Client implements Executor over HTTP.
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	queryURL  string
	updateURL string
	log       *slog.Logger
}

// NewClient creates a store client from configuration.
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	sc := cfg.Store
	agent := sc.UserAgent
	if agent == "" {
		agent = version.UserAgent()
	}

	rc := resty.New().
		SetHeader("User-Agent", agent).
		SetTimeout(sc.Timeout)
	if sc.Username != "" {
		rc.SetBasicAuth(sc.Username, sc.Password)
	}

	var limiter *rate.Limiter
	if sc.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(sc.RateLimit), max(sc.RateBurst, 1))
	}

	return &Client{
		http:      rc,
		limiter:   limiter,
		queryURL:  sc.QueryURL,
		updateURL: sc.UpdateURL,
		log:       log.With(logger.Scope("store")),
	}
}

func (c *Client) post(ctx context.Context, kind, endpoint, accept string, form url.Values) (*resty.Response, error) {
	ctx, span := tracing.Start(ctx, "store."+kind,
		attribute.String("sparql.endpoint", endpoint),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			requestsTotal.WithLabelValues(kind, "throttled").Inc()
			tracing.Fail(span, err)
			return nil, apperror.ErrUpstream.WithMessage("Graph store request was not admitted").WithInternal(err)
		}
	}

	start := time.Now()
	req := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form)
	if accept != "" {
		req.SetHeader("Accept", accept)
	}
	resp, err := req.Post(endpoint)
	requestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(kind, "error").Inc()
		tracing.Fail(span, err)
		c.log.Error("store request failed", slog.String("kind", kind), logger.Error(err))
		return nil, apperror.ErrUpstream.WithInternal(err)
	}

	status := resp.StatusCode()
	requestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if resp.IsError() {
		body := resp.String()
		upErr := apperror.NewUpstream(status, body)
		tracing.Fail(span, upErr)
		c.log.Error("store rejected request",
			slog.String("kind", kind),
			slog.Int("status", status),
			slog.String("body", body),
			slog.String("request", form.Get(formKey(kind))),
		)
		return nil, upErr
	}
	return resp, nil
}

func formKey(kind string) string {
	if kind == "update" {
		return "update"
	}
	return "query"
}

func queryForm(query string, opts []Option) url.Values {
	form := url.Values{"query": {query}}
	for _, opt := range opts {
		opt(form)
	}
	return form
}

// Update submits a SPARQL update.
func (c *Client) Update(ctx context.Context, update string) error {
	c.log.Debug("update", slog.String("sparql", update))
	_, err := c.post(ctx, "update", c.updateURL, "", url.Values{"update": {update}})
	return err
}

// Construct runs a CONSTRUCT or DESCRIBE query and decodes the result.
func (c *Client) Construct(ctx context.Context, query string, opts ...Option) (rdfio.Graph, error) {
	c.log.Debug("construct", slog.String("sparql", query))
	resp, err := c.post(ctx, "construct", c.queryURL, rdfio.MediaNTriples, queryForm(query, opts))
	if err != nil {
		return nil, err
	}
	ct := resp.Header().Get("Content-Type")
	if rdfio.MediaType(ct) == "" {
		ct = rdfio.MediaNTriples
	}
	g, err := rdfio.DecodeString(resp.String(), ct, "")
	if err != nil {
		return nil, apperror.ErrUpstream.WithMessage("Graph store returned an unreadable graph").WithInternal(err)
	}
	return g, nil
}

// Select runs a SELECT query.
func (c *Client) Select(ctx context.Context, query string, opts ...Option) (*Results, error) {
	c.log.Debug("select", slog.String("sparql", query))
	resp, err := c.post(ctx, "select", c.queryURL, rdfio.MediaSPARQLResults, queryForm(query, opts))
	if err != nil {
		return nil, err
	}
	return decodeResults(resp.Body())
}

// Ask runs an ASK query.
func (c *Client) Ask(ctx context.Context, query string, opts ...Option) (bool, error) {
	c.log.Debug("ask", slog.String("sparql", query))
	resp, err := c.post(ctx, "ask", c.queryURL, rdfio.MediaSPARQLResults, queryForm(query, opts))
	if err != nil {
		return false, err
	}
	res, err := decodeResults(resp.Body())
	if err != nil {
		return false, err
	}
	if res.Boolean == nil {
		return false, apperror.ErrUpstream.WithMessage("Graph store returned no boolean for ASK")
	}
	return *res.Boolean, nil
}

// Forward runs a query with the given Accept header and returns the body.
func (c *Client) Forward(ctx context.Context, query, accept string, opts ...Option) (*Response, error) {
	resp, err := c.post(ctx, "forward", c.queryURL, accept, queryForm(query, opts))
	if err != nil {
		return nil, err
	}
	return &Response{
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

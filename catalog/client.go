// Package catalog is the REST client for the catalog backend. Every failure is
// returned as one of NetworkError, ServerError, NotFoundError or
// ValidationError; nothing is retried.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OpList   = "list"
	OpFilter = "filter"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	tracerName   = "catalogadmin/catalog"
	maxBodyBytes = 4 << 20
)

var ErrEmptyID = errors.New("catalog: empty entity id")

type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
	metrics *Metrics
	tracer  trace.Tracer
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client (tests use the httptest one).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

func NewClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type call struct {
	resource string
	op       string
	method   string
	path     string
	id       string
	query    url.Values
	body     interface{}
}

func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "catalog."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("catalog.resource", cl.resource),
			attribute.String("catalog.id", cl.id),
			attribute.String("http.method", cl.method),
			attribute.String("http.route", cl.path),
		))
	defer span.End()

	if timing := servertiming.FromContext(ctx); timing != nil {
		metric := timing.NewMetric("backend").WithDesc(cl.resource + " " + cl.op).Start()
		defer metric.Stop()
	}

	start := time.Now()
	data, err := c.roundTrip(ctx, cl)
	c.metrics.observe(cl.resource, cl.op, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return data, err
}

func (c *Client) roundTrip(ctx context.Context, cl call) ([]byte, error) {
	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	logger := c.log.WithFields(logrus.Fields{
		"resource": cl.resource,
		"op":       cl.op,
		"method":   cl.method,
		"url":      endpoint,
	})

	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			logger.Errorf("catalog: failed to encode payload: %v", err)
			return nil, fmt.Errorf("encode %s payload: %w", cl.resource, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, reader)
	if err != nil {
		logger.Errorf("catalog: failed to create request: %v", err)
		return nil, &NetworkError{Resource: cl.resource, Op: cl.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, requestID(ctx))

	logger.Debug("catalog: sending request")
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Errorf("catalog: request failed: %v", err)
		return nil, &NetworkError{Resource: cl.resource, Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logger.Errorf("catalog: failed to read response body: %v", err)
		return nil, &NetworkError{Resource: cl.resource, Op: cl.op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(data)
		logger.Warnf("catalog: backend returned status %d: %s", resp.StatusCode, msg)
		return nil, statusError(cl.resource, cl.op, cl.id, resp.StatusCode, msg)
	}

	logger.Debugf("catalog: backend returned status %d", resp.StatusCode)
	return data, nil
}

// errorMessage extracts a human readable message from an error body. The
// backend answers either {"message": ...} or {"error": ...}.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}

	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

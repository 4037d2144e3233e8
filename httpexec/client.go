// Package httpexec provides a restive.Executor backed by net/http.
//
//	exec := httpexec.New("https://api.example.com").
//	    WithLogger(logger).
//	    WithValidation()
//	users, err := restive.New[Users](restive.NewRegistry(), exec)
//
// Bodies and results are JSON unless the endpoint declares a form or raw
// body. Status codes outside 2xx become *StatusError unless the endpoint's
// status policy is "any".
package httpexec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/broady/restive"
)

// Client sends restive requests over HTTP. It is safe for concurrent use
// once configured.
type Client struct {
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
	validate  bool
	userAgent string
}

var _ restive.Executor = (*Client)(nil)

// New returns a Client that resolves route templates against baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
}

// WithHTTPClient sets the underlying *http.Client.
// It returns the client for chaining.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

// WithLogger sets the logger used to record each exchange at debug level.
// It returns the client for chaining.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithValidation enables validation of struct bodies using `validate` tags
// before a request is sent.
// It returns the client for chaining.
func (c *Client) WithValidation() *Client {
	c.validate = true
	return c
}

// WithUserAgent sets the User-Agent header sent with every request.
// Endpoint headers may still override it.
// It returns the client for chaining.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// Send performs the request and discards the response body.
func (c *Client) Send(req *restive.RequestInfo) error {
	resp, body, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	return checkStatus(req, resp, body)
}

// SendRaw performs the request and returns the response as is, whatever
// its status. The caller must close the body.
func (c *Client) SendRaw(req *restive.RequestInfo) (*http.Response, error) {
	return c.do(req)
}

// SendText performs the request and returns the body as a string.
func (c *Client) SendText(req *restive.RequestInfo) (string, error) {
	resp, body, err := c.roundTrip(req)
	if err != nil {
		return "", err
	}
	if err := checkStatus(req, resp, body); err != nil {
		return "", err
	}
	return string(body), nil
}

// SendTyped performs the request and decodes the JSON body into out.
func (c *Client) SendTyped(req *restive.RequestInfo, out any) error {
	resp, body, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if err := checkStatus(req, resp, body); err != nil {
		return err
	}
	return decode(req, resp, body, out)
}

// SendWrapped performs the request, decodes the JSON body into content and
// returns the response metadata.
func (c *Client) SendWrapped(req *restive.RequestInfo, content any) (*restive.ResponseMeta, error) {
	resp, body, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(req, resp, body); err != nil {
		return nil, err
	}
	if err := decode(req, resp, body, content); err != nil {
		return nil, err
	}
	return &restive.ResponseMeta{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// do builds and sends the request without touching the response.
func (c *Client) do(req *restive.RequestInfo) (*http.Response, error) {
	hreq, err := c.newRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.log(req, hreq, 0, time.Since(start), err)
		return nil, fmt.Errorf("httpexec: %s: %w", req.Endpoint, err)
	}
	c.log(req, hreq, resp.StatusCode, time.Since(start), nil)
	return resp, nil
}

// roundTrip sends the request and reads the full body.
func (c *Client) roundTrip(req *restive.RequestInfo) (*http.Response, []byte, error) {
	resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("httpexec: %s: reading body: %w", req.Endpoint, err)
	}
	return resp, body, nil
}

func (c *Client) log(req *restive.RequestInfo, hreq *http.Request, status int, d time.Duration, err error) {
	if c.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("endpoint", req.Endpoint),
		slog.String("method", hreq.Method),
		slog.String("url", hreq.URL.String()),
		slog.Duration("duration", d),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		c.logger.LogAttrs(req.Context(), slog.LevelDebug, "http request failed", attrs...)
		return
	}
	attrs = append(attrs, slog.Int("status", status))
	c.logger.LogAttrs(req.Context(), slog.LevelDebug, "http request", attrs...)
}

func checkStatus(req *restive.RequestInfo, resp *http.Response, body []byte) error {
	if req.AllowAnyStatus || isSuccess(resp.StatusCode) {
		return nil
	}
	return &StatusError{
		Endpoint:   req.Endpoint,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}
}

// decode unmarshals a JSON body into out. An empty body leaves out
// untouched. Under the "any" status policy an error response that is not
// valid JSON is not a decode failure; its bytes stay available on the
// response metadata.
func decode(req *restive.RequestInfo, resp *http.Response, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		if !isSuccess(resp.StatusCode) {
			return nil
		}
		return fmt.Errorf("httpexec: %s: decoding response: %w", req.Endpoint, err)
	}
	return nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

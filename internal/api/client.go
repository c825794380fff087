package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gospider007/ja3"
	"github.com/ncpmeplmls0614/requests"
	"golang.org/x/time/rate"

	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/timeutil"
)

// ChromeJA3 is the TLS fingerprint presented when none is configured
const ChromeJA3 = "772,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,5-27-13-35-16-18-43-17513-65281-51-45-11-0-10-23,12092-29-23-24,0"

// ClientOptions configures the HTTP transport
type ClientOptions struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	JA3               string
}

// DefaultClientOptions returns sensible transport defaults
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        2 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		JA3:               ChromeJA3,
	}
}

// Client is the Transport backed by a fingerprinting HTTP client
type Client struct {
	http    *requests.Client
	ja3Spec ja3.Ja3Spec
	limiter *rate.Limiter
	opts    ClientOptions
	logger  *logging.Logger
}

// NewClient creates a transport client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.JA3 == "" {
		opts.JA3 = ChromeJA3
	}
	spec, err := ja3.CreateSpecWithStr(opts.JA3)
	if err != nil {
		return nil, fmt.Errorf("invalid ja3 fingerprint: %w", err)
	}

	httpClient, err := requests.NewClient(nil, requests.ClientOption{
		Ja3Spec:             spec,
		Timeout:             opts.Timeout,
		TlsHandshakeTimeout: opts.Timeout,
		DialTimeout:         opts.Timeout,
		DisCookie:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	c := &Client{
		http:    httpClient,
		ja3Spec: spec,
		opts:    opts,
		logger:  logging.NewLogger("transport"),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// Send issues the request, retrying transport failures with a linear backoff
func (c *Client) Send(ctx context.Context, url string, payload interface{}, id Identity, method string) (*Response, error) {
	log := c.logger.ForAccount(id.AccountIndex()).With("url", url)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := timeutil.Sleep(ctx, time.Duration(attempt)*c.opts.RetryDelay); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attempts++
		resp, status, err := c.do(ctx, url, payload, id, method)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = &TransportError{URL: url, Status: status, Attempts: attempts, Err: err}
		if !retryable(status) {
			break
		}
		log.Debug(fmt.Sprintf("Attempt %d failed: %v", attempts, err))
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string, payload interface{}, id Identity, method string) (*Response, int, error) {
	opt := requests.RequestOption{
		Headers: c.headers(id),
		Timeout: c.opts.Timeout,
		Proxy:   id.ProxyURL(),
		Ja3Spec: c.ja3Spec,
	}

	var (
		resp *requests.Response
		err  error
	)
	switch method {
	case MethodGet:
		resp, err = c.http.Get(ctx, url, opt)
	default:
		if payload == nil {
			payload = map[string]interface{}{}
		}
		opt.Json = payload
		resp, err = c.http.Post(ctx, url, opt)
	}
	if err != nil {
		return nil, 0, err
	}

	status := resp.StatusCode()
	body := resp.Content()
	if len(body) == 0 {
		return nil, status, errors.New("empty response body")
	}

	parsed, perr := ParseResponse(body)
	if perr != nil {
		if status >= 400 {
			return nil, status, fmt.Errorf("http status %d", status)
		}
		return nil, status, perr
	}
	if status >= 500 {
		return nil, status, fmt.Errorf("http status %d: %s", status, parsed.Msg)
	}
	return parsed, status, nil
}

func (c *Client) headers(id Identity) map[string]string {
	h := map[string]string{
		"Accept":       "application/json, text/plain, */*",
		"Content-Type": "application/json",
		"User-Agent":   c.opts.UserAgent,
	}
	if token := id.AuthToken(); token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

// retryable reports whether a failure with this HTTP status is worth
// another attempt. Status 0 means the request never got a response.
func retryable(status int) bool {
	return status == 0 || status == 429 || status >= 500
}

package api

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

	"github.com/rs/zerolog"

	"github.com/Skufu/PulseNet/internal/diagnosis"
)

const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 4 << 20
)

var ErrEmptyReply = errors.New("api: empty chat reply")

// Client talks to the external diagnosis API.
type Client struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, for a custom transport or CA
// pool. The timeout passed to NewClient is not applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze posts a normalized request to /analyze.
func (c *Client) Analyze(ctx context.Context, req diagnosis.Request) (*diagnosis.Result, error) {
	var res diagnosis.Result
	if err := c.do(ctx, http.MethodPost, "/analyze", req, &res); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return &res, nil
}

// DoctorRecords lists past diagnoses filed under email. A record that does
// not decode is returned as a zero value so the caller can skip it.
func (c *Client) DoctorRecords(ctx context.Context, email string) ([]diagnosis.HistoryRecord, error) {
	path := "/doctor/records?email=" + url.QueryEscape(email)

	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("doctor records: %w", err)
	}

	records := make([]diagnosis.HistoryRecord, 0, len(raw))
	for i, item := range raw {
		var rec diagnosis.HistoryRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			c.logger.Warn().Err(err).Int("index", i).Msg("undecodable history record")
			rec = diagnosis.HistoryRecord{}
		}
		records = append(records, rec)
	}
	return records, nil
}

type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat sends one message to /common-chat and returns the bot reply.
func (c *Client) Chat(ctx context.Context, message, language string) (string, error) {
	var res chatResponse
	if err := c.do(ctx, http.MethodPost, "/common-chat", chatRequest{Message: message, Language: language}, &res); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if strings.TrimSpace(res.Reply) == "" {
		return "", ErrEmptyReply
	}
	return res.Reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: detailMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

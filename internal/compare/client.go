// Package compare is a client for the audio comparison service that scores a
// practice recording against the reference chanting of one verse.
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where the comparison service listens in development.
	DefaultBaseURL = "http://localhost:5001/api"

	// DefaultTimeout bounds one call. Comparison runs speech recognition
	// on both recordings and is slow.
	DefaultTimeout = 2 * time.Minute

	// AudioField is the multipart field carrying the recording.
	AudioField = "audio"

	// PhoneticWeight and ProsodyWeight combine the two partial scores.
	PhoneticWeight = 0.6
	ProsodyWeight  = 0.4

	maxResponseSize = 1 << 20
)

var (
	// ErrUnavailable marks transport failures and 5xx replies.
	ErrUnavailable = errors.New("comparison service unavailable")

	// ErrNoAudio is returned when an upload carries no bytes.
	ErrNoAudio = errors.New("no audio provided")
)

// StatusError is a 4xx reply from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("comparison service returned %d: %s", e.Code, e.Message)
}

// Upload is the reply to a recording upload.
type Upload struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// Result is the score of one recording against one verse.
type Result struct {
	SessionID     string  `json:"session_id"`
	PasukID       int     `json:"pasuk_id"`
	Timestamp     string  `json:"timestamp,omitempty"`
	RabbiText     string  `json:"rabbi_text"`
	UserText      string  `json:"user_text"`
	PhoneticScore float64 `json:"phonetic_score"`
	ProsodyScore  float64 `json:"prosody_score"`
	OverallScore  float64 `json:"overall_score"`
	PlotAvailable bool    `json:"plot_available"`
}

// Weighted combines the partial scores, rounded to two decimals.
func (r Result) Weighted() float64 {
	return math.Round((r.PhoneticScore*PhoneticWeight+r.ProsodyScore*ProsodyWeight)*100) / 100
}

// Media is a binary reply streamed from the service. The caller closes Body.
type Media struct {
	ContentType string
	Length      int64
	Body        io.ReadCloser
}

// Client talks to one comparison service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the service at baseURL.
// A zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse compare base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("compare base url must be http or https, got %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "compare")),
	}, nil
}

// Upload sends a recording and returns the session it was stored under.
func (c *Client) Upload(ctx context.Context, filename string, audio io.Reader) (*Upload, error) {
	if filename == "" {
		filename = "recording.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(AudioField, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if n == 0 {
		return nil, ErrNoAudio
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload-recording"), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Upload
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("%w: upload reply has no session id", ErrUnavailable)
	}

	c.logger.InfoContext(ctx, "recording uploaded",
		slog.String("session_id", out.SessionID),
		slog.Int64("bytes", n),
	)
	return &out, nil
}

// Compare scores the recording of sessionID against verse pasukID.
func (c *Client) Compare(ctx context.Context, sessionID string, pasukID int) (*Result, error) {
	payload, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"pasuk_id":   pasukID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/compare-audio"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out Result
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	out.PasukID = pasukID
	if out.OverallScore == 0 {
		out.OverallScore = out.Weighted()
	}

	c.logger.InfoContext(ctx, "recording compared",
		slog.String("session_id", sessionID),
		slog.Int("pasuk_id", pasukID),
		slog.Float64("overall_score", out.OverallScore),
	)
	return &out, nil
}

// Results returns the stored score of an earlier comparison.
func (c *Client) Results(ctx context.Context, sessionID string) (*Result, error) {
	u, err := c.sessionEndpoint("results", sessionID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var out Result
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plot streams the pitch comparison chart of a compared session.
func (c *Client) Plot(ctx context.Context, sessionID string) (*Media, error) {
	u, err := c.sessionEndpoint("comparison-plot", sessionID)
	if err != nil {
		return nil, err
	}
	return c.stream(ctx, u)
}

// Audio streams the reference chanting of one verse.
func (c *Client) Audio(ctx context.Context, chapter, verse int) (*Media, error) {
	if chapter <= 0 || verse <= 0 {
		return nil, &StatusError{Code: http.StatusBadRequest, Message: fmt.Sprintf("invalid verse %d:%d", chapter, verse)}
	}
	return c.stream(ctx, c.endpoint(fmt.Sprintf("/audio/%d_%d", chapter, verse)))
}

func (c *Client) sessionEndpoint(kind, sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, "/\\?#") {
		return "", &StatusError{Code: http.StatusBadRequest, Message: fmt.Sprintf("invalid session id %q", sessionID)}
	}
	return c.baseURL.JoinPath(kind, sessionID).String(), nil
}

func (c *Client) stream(ctx context.Context, u string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, c.statusError(req, resp.StatusCode, body)
	}

	return &Media{
		ContentType: resp.Header.Get("Content-Type"),
		Length:      resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path += path
	return u.String()
}

type errorReply struct {
	Error string `json:"error"`
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read reply: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return c.statusError(req, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode reply: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) statusError(req *http.Request, status int, body []byte) error {
	if status >= 500 {
		c.logger.WarnContext(req.Context(), "comparison service error",
			slog.String("path", req.URL.Path),
			slog.Int("status", status),
		)
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}

	var reply errorReply
	_ = json.Unmarshal(body, &reply)
	if reply.Error == "" {
		reply.Error = http.StatusText(status)
	}
	return &StatusError{Code: status, Message: reply.Error}
}

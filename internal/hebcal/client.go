// Package hebcal adapts the Hebcal calendar to calendar.Gateway: date
// conversions are computed locally and named events come from the Hebcal
// REST API.
package hebcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
)

const (
	// DefaultBaseURL is the public Hebcal service.
	DefaultBaseURL = "https://www.hebcal.com"

	// DefaultTimeout bounds a single events request.
	DefaultTimeout = 10 * time.Second

	// UserAgent identifies the service to Hebcal.
	UserAgent = "bar-mitzva/1.0 (+https://github.com/AlmogShaul/bar-mitzva)"

	// maxResponseSize caps the body read from Hebcal. A single-day query is a
	// few kilobytes.
	maxResponseSize = 1 << 20
)

// Client queries the Hebcal events API.
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
		return nil, fmt.Errorf("parse hebcal base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("hebcal base url must be http or https, got %q", u.Scheme)
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
		logger:  logger.With(slog.String("component", "hebcal")),
	}, nil
}

type eventsResponse struct {
	Items []eventItem `json:"items"`
}

type eventItem struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Hebrew   string `json:"hebrew"`
}

// Events lists the named events of a single date. israel selects the Israeli
// reading schedule.
func (c *Client) Events(ctx context.Context, date calendar.CivilDate, israel bool) ([]calendar.Event, error) {
	day := date.String()

	q := url.Values{}
	q.Set("v", "1")
	q.Set("cfg", "json")
	q.Set("start", day)
	q.Set("end", day)
	q.Set("s", "on")   // weekly portions
	q.Set("maj", "on") // major holidays
	q.Set("min", "on") // minor holidays
	q.Set("mod", "on") // modern holidays
	q.Set("nx", "on")  // rosh chodesh
	q.Set("mf", "on")  // minor fasts
	q.Set("ss", "on")  // special shabbatot
	q.Set("leyning", "off")
	if israel {
		q.Set("i", "on")
	}

	u := *c.baseURL
	u.Path += "/hebcal"
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "fetching events", slog.String("date", day), slog.Bool("israel", israel))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request events: %v", calendar.ErrGateway, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "hebcal returned error status",
			slog.String("date", day),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: hebcal returned status %d", calendar.ErrGateway, resp.StatusCode)
	}

	var body eventsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode events: %v", calendar.ErrGateway, err)
	}

	events := make([]calendar.Event, 0, len(body.Items))
	for _, item := range body.Items {
		// Timed items carry a full timestamp; the day is its first ten bytes.
		if !strings.HasPrefix(item.Date, day) {
			continue
		}
		events = append(events, calendar.Event{
			Description: item.Title,
			Category:    item.Category,
			Hebrew:      item.Hebrew,
		})
	}
	return events, nil
}

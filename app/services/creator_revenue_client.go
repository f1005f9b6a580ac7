package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// adConfirmedPayload is the body posted to the external monetization
// endpoint after a billable confirm commits (spec §6 "Creator Revenue").
type adConfirmedPayload struct {
	VideoID   string `json:"videoId"`
	ViewerID  *uint  `json:"viewerId,omitempty"`
	AdID      string `json:"adId"`
	CostCents int64  `json:"costCents"`
}

// revenueFailure records one failed notification attempt for operator
// inspection; kept in a bounded ring so a misbehaving downstream can't
// leak memory into the process.
type revenueFailure struct {
	At      time.Time
	VideoID string
	AdID    string
	Err     string
}

// CreatorRevenueClient posts the fire-and-forget ad-confirmed notification
// to the external monetization service. Modeled on the teacher's
// BithideClient: a trimmed base URL, a timeout-bound *http.Client, and a
// typed request/response pair, generalized to a single best-effort POST
// instead of a request/response payment API.
type CreatorRevenueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu       sync.Mutex
	failures []revenueFailure
	ringSize int
}

// NewCreatorRevenueClient creates a client posting to
// baseURL+"/api/monetization/ad-confirmed". ringSize bounds the in-memory
// failure log; <=0 disables it.
func NewCreatorRevenueClient(baseURL, apiKey string, timeout time.Duration, ringSize int) *CreatorRevenueClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CreatorRevenueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		ringSize:   ringSize,
	}
}

// NotifyAdConfirmed fires the notification in its own goroutine; the
// confirm flow never blocks on or fails because of this call (spec §4.8
// step 6, spec §6 "any failure is logged and swallowed").
func (c *CreatorRevenueClient) NotifyAdConfirmed(ctx context.Context, videoID string, viewerID *uint, adUUID string, costCents int64) {
	if c.baseURL == "" {
		return
	}
	go c.notify(videoID, viewerID, adUUID, costCents)
}

func (c *CreatorRevenueClient) notify(videoID string, viewerID *uint, adUUID string, costCents int64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	payload := adConfirmedPayload{
		VideoID:   videoID,
		ViewerID:  viewerID,
		AdID:      adUUID,
		CostCents: costCents,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.recordFailure(videoID, adUUID, err)
		return
	}

	url := c.baseURL + "/api/monetization/ad-confirmed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.recordFailure(videoID, adUUID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(videoID, adUUID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure(videoID, adUUID, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *CreatorRevenueClient) recordFailure(videoID, adUUID string, err error) {
	log.Printf(`{"level":"warn","event":"creator_revenue_notify_failed","video_id":"%s","ad_id":"%s","error":"%v"}`, videoID, adUUID, err)
	if c.ringSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, revenueFailure{At: time.Now(), VideoID: videoID, AdID: adUUID, Err: err.Error()})
	if len(c.failures) > c.ringSize {
		c.failures = c.failures[len(c.failures)-c.ringSize:]
	}
}

// RecentFailures returns a snapshot of the most recent notification
// failures, for operator diagnostics.
func (c *CreatorRevenueClient) RecentFailures() []revenueFailure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]revenueFailure, len(c.failures))
	copy(out, c.failures)
	return out
}

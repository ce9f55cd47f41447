package crmapi

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

	"praxis/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrRejected = errors.New("rejected by appointment service")
)

// HTTPError carries a non-2xx status returned by the appointment service.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

func (e *HTTPError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= 400 && e.Status < 500:
		return ErrRejected
	}
	return nil
}

const resourcesCacheKey = "praxis:resources"

// Client calls the remote appointment and resource service.
type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	limiter *rate.Limiter
}

// NewClient constructs a client with baseURL, API key and extra header.
func NewClient(baseURL, apiKey, apiExtra string, logger *zerolog.Logger) *Client {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for the resource directory.
// Appointment listings are never cached.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit caps outbound requests per second. rps <= 0 disables it.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// ListResources returns the provider directory.
func (c *Client) ListResources(ctx context.Context) ([]model.Resource, error) {
	endpoint := fmt.Sprintf("%s/api/v1/resources", c.baseURL)
	var wrap struct {
		Resources []model.Resource `json:"resources"`
	}

	if c.readCache(ctx, resourcesCacheKey, &wrap) {
		return wrap.Resources, nil
	}

	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	c.writeCache(ctx, resourcesCacheKey, wrap)
	return wrap.Resources, nil
}

// InvalidateResources drops the cached directory.
func (c *Client) InvalidateResources(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, resourcesCacheKey).Err()
}

// ListAppointments returns appointments starting within [start, end],
// optionally restricted to resourceIDs. Entries that fail validation are
// skipped and logged.
func (c *Client) ListAppointments(ctx context.Context, start, end time.Time, resourceIDs []string) ([]model.Appointment, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	if len(resourceIDs) > 0 {
		q.Set("resource_ids", strings.Join(resourceIDs, ","))
	}
	endpoint := fmt.Sprintf("%s/api/v1/appointments?%s", c.baseURL, q.Encode())

	var wrap struct {
		Appointments []json.RawMessage `json:"appointments"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	out := make([]model.Appointment, 0, len(wrap.Appointments))
	for _, raw := range wrap.Appointments {
		var a model.Appointment
		if err := json.Unmarshal(raw, &a); err != nil {
			c.logger.Warn().Err(err).RawJSON("appointment", raw).Msg("skipping malformed appointment")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// CreateAppointment submits a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, d model.Draft) (model.Appointment, error) {
	if err := d.Validate(); err != nil {
		return model.Appointment{}, err
	}
	endpoint := fmt.Sprintf("%s/api/v1/appointments", c.baseURL)
	var a model.Appointment
	if err := c.doJSON(ctx, http.MethodPost, endpoint, d, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return a, nil
}

// UpdateAppointment applies a partial update.
func (c *Client) UpdateAppointment(ctx context.Context, id string, u model.Update) (model.Appointment, error) {
	endpoint := fmt.Sprintf("%s/api/v1/appointments/%s", c.baseURL, url.PathEscape(id))
	var a model.Appointment
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, u, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/api/v1/appointments/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

// HealthCheck checks if the appointment service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("appointment service call")

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(msg)}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

// errorMessage extracts {"error": "..."} bodies and falls back to raw text.
func errorMessage(body []byte) string {
	var wrap struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &wrap) == nil && wrap.Error != "" {
		return wrap.Error
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}

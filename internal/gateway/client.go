// Package gateway is the HTTP boundary to the remote scheduling API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"medsched/internal/model"
)

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Token    string
	DoctorID string
	Timeout  time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            *zerolog.Logger
}

// Client calls the schedule and availability endpoints for one doctor.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	doctorID   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger
	tracer     trace.Tracer

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client from opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		token:      opts.Token,
		doctorID:   opts.DoctorID,
		httpClient: httpClient,
		logger:     logger,
		tracer:     otel.Tracer("medsched/gateway"),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// UseRedisCache enables caching of the template read and of override range reads.
// Writes invalidate the cached entries of the doctor.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) scheduleURL() string {
	return fmt.Sprintf("%s/api/doctors/%s/schedule", c.baseURL, url.PathEscape(c.doctorID))
}

func (c *Client) availabilityURL() string {
	return fmt.Sprintf("%s/api/doctors/%s/availability", c.baseURL, url.PathEscape(c.doctorID))
}

func (c *Client) templateKey() string {
	return fmt.Sprintf("medsched:%s:template", c.doctorID)
}

func (c *Client) overridesKey(q model.OverrideQuery) string {
	return fmt.Sprintf("medsched:%s:overrides:%s:%s", c.doctorID, q.From, q.To)
}

// GetWeeklyTemplate reads all seven days.
func (c *Client) GetWeeklyTemplate(ctx context.Context) (model.FullTemplate, error) {
	const op = "GetWeeklyTemplate"
	var body ScheduleBody

	if !c.readCache(ctx, c.templateKey(), &body) {
		if err := c.call(ctx, op, http.MethodGet, c.scheduleURL(), nil, &body); err != nil {
			return model.FullTemplate{}, err
		}
		c.writeCache(ctx, c.templateKey(), body)
	}

	tpl, err := model.FullTemplateFromDays(body.Schedule)
	if err != nil {
		return model.FullTemplate{}, &Error{Op: op, Err: fmt.Errorf("decode schedule: %w", err)}
	}
	return tpl, nil
}

// SaveWeeklyTemplate sends the active days. The server upserts them and
// leaves every other day as it was.
func (c *Client) SaveWeeklyTemplate(ctx context.Context, patch model.ActiveDaysPatch) (*model.TemplateSaveResult, error) {
	var resp MessageBody
	err := c.call(ctx, "SaveWeeklyTemplate", http.MethodPut, c.scheduleURL(), ScheduleBody{Schedule: patch.Days()}, &resp)
	c.invalidate(ctx, c.templateKey())
	if err != nil {
		return nil, err
	}
	return &model.TemplateSaveResult{Message: resp.Message}, nil
}

// ListOverrides reads the overrides in an inclusive date range.
// Queries that include blocked days are existence checks and skip the cache.
func (c *Client) ListOverrides(ctx context.Context, q model.OverrideQuery) ([]model.DayOverride, error) {
	params := url.Values{}
	params.Set(ParamStartDate, q.From.String())
	params.Set(ParamEndDate, q.To.String())
	params.Set(ParamIncludeUnavailable, strconv.FormatBool(q.IncludeUnavailable))
	endpoint := c.availabilityURL() + "?" + params.Encode()

	cacheable := !q.IncludeUnavailable
	var body OverridesBody
	if cacheable && c.readCache(ctx, c.overridesKey(q), &body) {
		return body.Overrides, nil
	}
	if err := c.call(ctx, "ListOverrides", http.MethodGet, endpoint, nil, &body); err != nil {
		return nil, err
	}
	if cacheable {
		c.writeCache(ctx, c.overridesKey(q), body)
	}
	return body.Overrides, nil
}

// CreateOverride stores a new override.
func (c *Client) CreateOverride(ctx context.Context, o model.DayOverride) (*model.OverrideSaveResult, error) {
	o.ID = ""
	var resp model.OverrideSaveResult
	err := c.call(ctx, "CreateOverride", http.MethodPost, c.availabilityURL(), o, &resp)
	c.invalidateOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateOverride replaces the override with the given id.
func (c *Client) UpdateOverride(ctx context.Context, id string, o model.DayOverride) (*model.OverrideSaveResult, error) {
	o.ID = id
	endpoint := c.availabilityURL() + "/" + url.PathEscape(id)
	var resp model.OverrideSaveResult
	err := c.call(ctx, "UpdateOverride", http.MethodPut, endpoint, o, &resp)
	c.invalidateOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck checks if the remote API answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.call(ctx, "HealthCheck", http.MethodGet, c.baseURL+"/healthz", nil, nil)
}

func (c *Client) call(ctx context.Context, op, method, endpoint string, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "gateway."+op, trace.WithAttributes(
		attribute.String("doctor.id", c.doctorID),
		attribute.String("http.method", method),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return c.transportError(op, werr)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", merr)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	c.addHeaders(req)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Str("request_id", requestID).Msg("gateway request failed")
		return c.transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("gateway request")
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeFailure(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: 0, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) transportError(op string, err error) *Error {
	ge := &Error{Op: op, Err: err}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		ge.Timeout = true
	}
	return ge
}

func decodeFailure(op string, resp *http.Response) *Error {
	ge := &Error{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ge
	}
	var body ErrorBody
	if json.Unmarshal(data, &body) != nil || body.Error == "" {
		return ge
	}
	ge.Message = body.Error
	if len(body.Details) > 0 {
		var s string
		if json.Unmarshal(body.Details, &s) == nil {
			ge.Details = s
		} else {
			ge.Details = string(body.Details)
		}
	}
	return ge
}

package bookingapi

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

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 1 << 20

// StatusError is a non-success response from the booking API. Message is the
// response body, trimmed; it is empty when the server sent none.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("booking api: status %d", e.Code)
	}
	return fmt.Sprintf("booking api: status %d: %s", e.Code, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type CreateBookingRequest struct {
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"`
}

// Client talks to the remote booking API. Every call is a single attempt:
// nothing is retried and no idempotency key is sent, so a timeout on
// CreateBooking leaves it unknown whether the server committed the booking.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	log      *zap.Logger
	location *time.Location
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithLocation sets the zone used for booking dates the server sends without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		c.location = loc
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: timeout},
		log:      zap.NewNop(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AvailableTimes lists the HH:mm labels still free at the shop on date.
func (c *Client) AvailableTimes(ctx context.Context, token, shopID string, date time.Time) ([]string, error) {
	query := url.Values{"date": []string{date.Format(domain.DateLayout)}}
	body, err := c.do(ctx, token, http.MethodGet, query, nil, isSuccess, "api", "barbershops", shopID, "available-times")
	if err != nil {
		return nil, err
	}

	var times []string
	if err := json.Unmarshal(body, &times); err != nil {
		return nil, fmt.Errorf("decode available times: %w", err)
	}
	if times == nil {
		times = []string{}
	}
	return times, nil
}

// CreateBooking submits a reservation. Only 201 Created counts as success;
// the created booking is returned when the server echoes it back.
func (c *Client) CreateBooking(ctx context.Context, token string, req CreateBookingRequest) (*domain.Booking, error) {
	body, err := c.do(ctx, token, http.MethodPost, nil, req, isCreated, "api", "bookings")
	if err != nil {
		return nil, err
	}

	var dto bookingDTO
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &dto) != nil || dto.ID == "" {
		return nil, nil
	}
	b, err := dto.toDomain(c.location)
	if err != nil {
		c.log.Debug("ignoring undecodable created booking", zap.Error(err))
		return nil, nil
	}
	return &b, nil
}

func (c *Client) CancelBooking(ctx context.Context, token, bookingID string) error {
	_, err := c.do(ctx, token, http.MethodPatch, nil, nil, isSuccess, "api", "bookings", bookingID, "cancel")
	return err
}

func (c *Client) MyBookings(ctx context.Context, token string) ([]domain.Booking, error) {
	body, err := c.do(ctx, token, http.MethodGet, nil, nil, isSuccess, "api", "bookings", "my-bookings")
	if err != nil {
		return nil, err
	}

	var dtos []bookingDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	bookings := make([]domain.Booking, 0, len(dtos))
	for _, dto := range dtos {
		b, err := dto.toDomain(c.location)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (c *Client) do(
	ctx context.Context,
	token, method string,
	query url.Values,
	in any,
	accept func(int) bool,
	segments ...string,
) ([]byte, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	target := c.baseURL.JoinPath(escaped...)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.authorized(token).Do(req)
	if err != nil {
		c.log.Warn("booking api request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", target.Path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("booking api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if !accept(resp.StatusCode) {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// authorized wraps the base transport so every request carries the bearer token.
func (c *Client) authorized(token string) *http.Client {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:       c.http.Timeout,
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

// errorMessage returns the server's error text: the "message" field when the
// body is a JSON object carrying one, the raw trimmed body otherwise.
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "{") {
		return text
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		return text
	}
	return strings.TrimSpace(payload.Message)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func isCreated(code int) bool {
	return code == http.StatusCreated
}

// Package bridge talks to a vehicle gateway sidecar over HTTP/JSON. The
// sidecar owns the vendor protocol; this client only maps its responses onto
// the telematics contract.
package bridge

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
	"sync"
	"time"

	"k8s.io/utils/clock"

	"visioniq.io/visioniq/internal/telematics"
	"visioniq.io/visioniq/pkg/log"
)

// tokenSlack renews the session this long before it expires.
const tokenSlack = 30 * time.Second

// Credentials identify the vendor account.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	PIN      string `json:"pin"`
	Region   int    `json:"region"`
	Brand    int    `json:"brand"`
}

// Config holds the settings for a bridge client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials Credentials

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	Clock      clock.PassiveClock
}

var _ telematics.Client = (*Client)(nil)

// Client is a telematics.Client backed by the gateway.
type Client struct {
	base   *url.URL
	creds  Credentials
	http   *http.Client
	clock  clock.PassiveClock
	logger log.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// New validates cfg and returns a client. No request is made.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Client{
		base:   base,
		creds:  cfg.Credentials,
		http:   hc,
		clock:  clk,
		logger: log.WithName("telematics.bridge").WithValues("gateway", base.Host),
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) RefreshToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Add(tokenSlack).Before(c.expiry) {
		return nil
	}

	body, err := json.Marshal(c.creds)
	if err != nil {
		return telematics.NewError(telematics.KindUnclassified, telematics.OpRefreshToken, err)
	}

	var tr tokenResponse
	if err := c.do(ctx, telematics.OpRefreshToken, http.MethodPost, "/token", "", body, &tr); err != nil {
		return err
	}
	if tr.AccessToken == "" {
		return telematics.Errorf(telematics.KindKeyLookup, telematics.OpRefreshToken, "response has no access_token")
	}

	c.token = tr.AccessToken
	c.expiry = c.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.Debug("Session renewed", "expiresAt", c.expiry)
	return nil
}

func (c *Client) UpdateCachedState(ctx context.Context, vehicleID string) error {
	return c.authed(ctx, telematics.OpUpdateCachedState, http.MethodPost, vehiclePath(vehicleID, "update"), nil)
}

func (c *Client) ForceRefreshState(ctx context.Context, vehicleID string) error {
	return c.authed(ctx, telematics.OpForceRefreshState, http.MethodPost, vehiclePath(vehicleID, "refresh"), nil)
}

func (c *Client) GetVehicle(ctx context.Context, vehicleID string) (*telematics.VehicleState, error) {
	var vr vehicleResponse
	if err := c.authed(ctx, telematics.OpGetVehicle, http.MethodGet, vehiclePath(vehicleID, ""), &vr); err != nil {
		return nil, err
	}
	return vr.toState()
}

func (c *Client) authed(ctx context.Context, op telematics.Op, method, path string, out any) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return telematics.Errorf(telematics.KindAuthentication, op, "no session, refresh the token first")
	}

	err := c.do(ctx, op, method, path, token, nil, out)
	if telematics.KindOf(err) == telematics.KindAuthentication {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	return err
}

func (c *Client) do(ctx context.Context, op telematics.Op, method, path, token string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return telematics.NewError(telematics.KindUnclassified, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return telematics.NewError(telematics.KindOf(err), op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return telematics.NewError(telematics.KindOf(err), op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return telematics.NewError(kindForStatus(resp.StatusCode), op, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return telematics.NewError(telematics.KindInvalidResponse, op, err)
	}
	return nil
}

// StatusError is a non-2xx gateway reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Code, e.Message)
}

func kindForStatus(code int) telematics.Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return telematics.KindAuthentication
	case http.StatusNotFound:
		return telematics.KindNoData
	case http.StatusConflict:
		return telematics.KindDuplicateRequest
	case http.StatusTooManyRequests:
		return telematics.KindRateLimited
	case http.StatusServiceUnavailable:
		return telematics.KindServiceUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return telematics.KindRequestTimeout
	default:
		return telematics.KindAPI
	}
}

func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

func vehiclePath(id, action string) string {
	p := "/vehicles/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

type vehicleResponse struct {
	BatteryPercentage *float64 `json:"battery_percentage"`
	Odometer          *float64 `json:"odometer"`
	DrivingRange      *float64 `json:"ev_driving_range"`
	BatteryHealth     *float64 `json:"battery_soh_percentage"`
	Longitude         *float64 `json:"longitude"`
	Latitude          *float64 `json:"latitude"`
	LastUpdatedAt     *string  `json:"last_updated_at"`
}

var errMissingKey = errors.New("missing key")

func (v *vehicleResponse) toState() (*telematics.VehicleState, error) {
	op := telematics.OpGetVehicle

	for _, f := range []struct {
		key     string
		present bool
	}{
		{"battery_percentage", v.BatteryPercentage != nil},
		{"odometer", v.Odometer != nil},
		{"ev_driving_range", v.DrivingRange != nil},
		{"last_updated_at", v.LastUpdatedAt != nil},
	} {
		if !f.present {
			return nil, telematics.NewError(telematics.KindKeyLookup, op, fmt.Errorf("%w %q", errMissingKey, f.key))
		}
	}

	updated, err := time.Parse(time.RFC3339Nano, *v.LastUpdatedAt)
	if err != nil {
		return nil, telematics.NewError(telematics.KindInvalidResponse, op, err)
	}

	return &telematics.VehicleState{
		BatteryPercentage: *v.BatteryPercentage,
		Odometer:          *v.Odometer,
		DrivingRange:      *v.DrivingRange,
		BatteryHealth:     v.BatteryHealth,
		Longitude:         v.Longitude,
		Latitude:          v.Latitude,
		LastUpdatedAt:     updated.UTC(),
	}, nil
}

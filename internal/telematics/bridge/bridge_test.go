package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"visioniq.io/visioniq/internal/telematics"
)

type gateway struct {
	tokens   atomic.Int32
	status   int
	vehicle  string
	lastAuth atomic.Value
}

func (g *gateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		var c Credentials
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Username == "" {
			http.Error(w, `{"error":"bad credentials"}`, http.StatusUnauthorized)
			return
		}
		g.tokens.Add(1)
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 3600})
	})
	mux.HandleFunc("POST /vehicles/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		g.lastAuth.Store(r.Header.Get("Authorization"))
		if g.status != 0 {
			w.WriteHeader(g.status)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /vehicles/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "KMHC8" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(g.vehicle))
	})
	return mux
}

func newTestClient(t *testing.T, g *gateway) *Client {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		Credentials: Credentials{Username: "driver", Password: "pw", PIN: "1234", Region: 3, Brand: 2},
		Clock:       clocktesting.NewFakePassiveClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClientHappyPath(t *testing.T) {
	g := &gateway{vehicle: `{"battery_percentage":81,"odometer":12045.5,"ev_driving_range":340,
		"longitude":126.97,"latitude":37.56,"last_updated_at":"2025-06-01T11:30:00+09:00"}`}
	c := newTestClient(t, g)
	ctx := context.Background()

	if err := c.RefreshToken(ctx); err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if err := c.RefreshToken(ctx); err != nil {
		t.Fatalf("second RefreshToken: %v", err)
	}
	if n := g.tokens.Load(); n != 1 {
		t.Errorf("token endpoint hit %d times, want 1", n)
	}

	if err := c.UpdateCachedState(ctx, "KMHC8"); err != nil {
		t.Fatalf("UpdateCachedState: %v", err)
	}
	if got := g.lastAuth.Load(); got != "Bearer tok" {
		t.Errorf("Authorization = %v", got)
	}

	v, err := c.GetVehicle(ctx, "KMHC8")
	if err != nil {
		t.Fatalf("GetVehicle: %v", err)
	}
	if v.BatteryPercentage != 81 || v.Odometer != 12045.5 || v.DrivingRange != 340 {
		t.Errorf("vehicle = %+v", v)
	}
	if v.BatteryHealth != nil {
		t.Errorf("battery health = %v, want nil", *v.BatteryHealth)
	}
	if want := time.Date(2025, 6, 1, 2, 30, 0, 0, time.UTC); !v.LastUpdatedAt.Equal(want) || v.LastUpdatedAt.Location() != time.UTC {
		t.Errorf("LastUpdatedAt = %v, want %v", v.LastUpdatedAt, want)
	}
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   telematics.Kind
	}{
		{http.StatusUnauthorized, telematics.KindAuthentication},
		{http.StatusForbidden, telematics.KindAuthentication},
		{http.StatusNotFound, telematics.KindNoData},
		{http.StatusConflict, telematics.KindDuplicateRequest},
		{http.StatusTooManyRequests, telematics.KindRateLimited},
		{http.StatusServiceUnavailable, telematics.KindServiceUnavailable},
		{http.StatusGatewayTimeout, telematics.KindRequestTimeout},
		{http.StatusInternalServerError, telematics.KindAPI},
		{http.StatusBadRequest, telematics.KindAPI},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, &gateway{status: tt.status})
			ctx := context.Background()
			if err := c.RefreshToken(ctx); err != nil {
				t.Fatal(err)
			}

			err := c.ForceRefreshState(ctx, "KMHC8")
			if got := telematics.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", err, got, tt.want)
			}
			if !errors.Is(err, &telematics.Error{Kind: tt.want, Op: telematics.OpForceRefreshState}) {
				t.Errorf("error %v does not carry the force refresh op", err)
			}
		})
	}
}

func TestClientResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want telematics.Kind
	}{
		{"not json", `<html>`, telematics.KindInvalidResponse},
		{"missing key", `{"battery_percentage":81,"odometer":1,"last_updated_at":"2025-06-01T00:00:00Z"}`, telematics.KindKeyLookup},
		{"bad timestamp", `{"battery_percentage":81,"odometer":1,"ev_driving_range":2,"last_updated_at":"noon"}`, telematics.KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &gateway{vehicle: tt.body})
			ctx := context.Background()
			if err := c.RefreshToken(ctx); err != nil {
				t.Fatal(err)
			}

			v, err := c.GetVehicle(ctx, "KMHC8")
			if v != nil {
				t.Errorf("vehicle = %+v, want nil", v)
			}
			if got := telematics.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", err, got, tt.want)
			}
		})
	}
}

func TestClientRequiresSession(t *testing.T) {
	c := newTestClient(t, &gateway{})

	err := c.UpdateCachedState(context.Background(), "KMHC8")
	if telematics.KindOf(err) != telematics.KindAuthentication {
		t.Errorf("KindOf = %q, want authentication", telematics.KindOf(err))
	}
}

func TestClientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second, Credentials: Credentials{Username: "driver"}})
	if err != nil {
		t.Fatal(err)
	}

	err = c.RefreshToken(context.Background())
	if got := telematics.KindOf(err); got != telematics.KindConnection {
		t.Errorf("KindOf(%v) = %q, want connection", err, got)
	}
}

package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"visioniq.io/visioniq/pkg/options"
)

type fakeReports struct {
	err error
}

func (f *fakeReports) write(w io.Writer, body string) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, body)
	return err
}

func (f *fakeReports) RangeChart(w io.Writer) error   { return f.write(w, "range") }
func (f *fakeReports) ChargeChart(w io.Writer) error  { return f.write(w, "charge") }
func (f *fakeReports) MileageChart(w io.Writer) error { return f.write(w, "mileage") }
func (f *fakeReports) Map(w io.Writer) error          { return f.write(w, "<html>map</html>") }

func newTestServer(reports *fakeReports, ready func() error) *Server {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "vehicle_data_charging_level 80\n")
	})
	return NewServer(Config{
		Options: options.NewHttpOptions(),
		Metrics: metrics,
		Reports: reports,
		Ready:   ready,
	})
}

func TestRoutes(t *testing.T) {
	h := newTestServer(&fakeReports{}, nil).Handler()

	tests := []struct {
		method      string
		path        string
		wantCode    int
		wantType    string
		wantBodyHas string
	}{
		{http.MethodGet, "/metrics", http.StatusOK, "", "vehicle_data_charging_level 80"},
		{http.MethodGet, "/map", http.StatusOK, "text/html; charset=utf-8", "map"},
		{http.MethodGet, "/range.png", http.StatusOK, "image/png", "range"},
		{http.MethodGet, "/charge.png", http.StatusOK, "image/png", "charge"},
		{http.MethodGet, "/mileage.png", http.StatusOK, "image/png", "mileage"},
		{http.MethodHead, "/range.png", http.StatusOK, "image/png", ""},
		{http.MethodGet, "/healthz", http.StatusOK, "", "ok"},
		{http.MethodGet, "/readyz", http.StatusOK, "", "ok"},
		{http.MethodPost, "/metrics", http.StatusMethodNotAllowed, "", ""},
		{http.MethodDelete, "/map", http.StatusMethodNotAllowed, "", ""},
		{http.MethodGet, "/nope", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("content type = %q, want %q", rec.Header().Get("Content-Type"), tt.wantType)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBodyHas) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBodyHas)
			}
		})
	}
}

func TestRenderFailure(t *testing.T) {
	h := newTestServer(&fakeReports{err: errors.New("disk gone")}, nil).Handler()

	for _, path := range []string{"/map", "/range.png", "/charge.png", "/mileage.png"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("%s: content type = %q", path, ct)
		}
	}
}

func TestReadyz(t *testing.T) {
	h := newTestServer(&fakeReports{}, func() error { return errors.New("store unreadable") }).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	opts := options.NewHttpOptions()
	opts.Host = "127.0.0.1"
	opts.Port = port
	s := NewServer(Config{Options: opts, Metrics: http.NotFoundHandler(), Reports: &fakeReports{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

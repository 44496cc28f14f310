package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"visioniq.io/visioniq/pkg/log"
)

// Header is the first line of every log file.
var Header = []string{"Timestamp", "Charging Level", "Mileage", "Battery Health", "EV Driving Range", "Longitude", "Latitude"}

const (
	separator       = ", "
	timestampLayout = "2006-01-02T15:04:05.000000Z"
)

// Timestamps written by older builds and by hand carry no zone or use a
// space separator. Zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var _ Store = (*CSVStore)(nil)

// CSVStore keeps samples in a comma separated file.
type CSVStore struct {
	path   string
	logger log.Logger

	// mu serializes appends. Readers are not excluded and tolerate a
	// partially written last line.
	mu sync.Mutex
}

// NewCSVStore returns a store backed by the file at path. The file is
// created on first append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: log.WithName("store").WithValues("path", path),
	}
}

// Path returns the log file location.
func (c *CSVStore) Path() string {
	return c.path
}

func (c *CSVStore) Append(s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(strings.Join(Header, separator))
		b.WriteByte('\n')
		c.logger.Info("Created sample log")
	}
	b.WriteString(strings.Join(encodeRow(s), separator))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

func (c *CSVStore) ReadAll() ([]Sample, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	return Decode(f, c.logger)
}

// Decode reads samples from r. Malformed values are zeroed and malformed
// lines skipped; only I/O errors are returned.
func Decode(r io.Reader, logger log.Logger) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var samples []Sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn("Skipping malformed log line", "line", perr.Line, "error", perr.Err)
				continue
			}
			return samples, fmt.Errorf("read log: %w", err)
		}

		if len(rec) == 0 || strings.TrimSpace(rec[0]) == Header[0] {
			continue
		}
		samples = append(samples, decodeRow(rec))
	}
	return samples, nil
}

// FormatTimestamp renders t the way the log stores it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp accepts every layout the log has been written with. It
// returns the zero time when none match.
func ParseTimestamp(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func encodeRow(s Sample) []string {
	lon, lat := "", ""
	if s.Location != nil {
		lon = formatFloat(s.Location.Longitude)
		lat = formatFloat(s.Location.Latitude)
	}
	return []string{
		FormatTimestamp(s.Timestamp),
		formatFloat(s.ChargingLevel),
		formatFloat(s.Mileage),
		formatFloat(s.BatteryHealth),
		formatFloat(s.DrivingRange),
		lon,
		lat,
	}
}

func decodeRow(rec []string) Sample {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	s := Sample{
		Timestamp:     ParseTimestamp(field(0)),
		ChargingLevel: parseFloat(field(1)),
		Mileage:       parseFloat(field(2)),
		BatteryHealth: parseFloat(field(3)),
		DrivingRange:  parseFloat(field(4)),
	}

	lon, lonOK := finiteFloat(field(5))
	lat, latOK := finiteFloat(field(6))
	if lonOK && latOK {
		s.Location = &Location{Longitude: lon, Latitude: lat}
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseFloat reads v as zero unless it is a finite number.
func parseFloat(v string) float64 {
	f, _ := finiteFloat(v)
	return f
}

func finiteFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

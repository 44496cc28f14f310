package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TelematicsOptions)(nil)

const (
	DriverSimulated = "simulated"
	DriverBridge    = "bridge"
)

// TelematicsOptions selects and tunes the vendor adapter.
type TelematicsOptions struct {
	// Driver is either "bridge" (the real vehicle) or "simulated".
	Driver string `json:"driver" mapstructure:"driver"`

	// BaseURL is the vehicle gateway root used by the bridge driver.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Timeout bounds every bridge request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// StaleAfter makes the simulated driver's cache age past this duration
	// so the forced refresh path is exercised. Zero keeps it fresh.
	StaleAfter time.Duration `json:"stale-after" mapstructure:"stale-after"`
}

func NewTelematicsOptions() *TelematicsOptions {
	return &TelematicsOptions{
		Driver:  DriverBridge,
		BaseURL: "http://127.0.0.1:8090",
		Timeout: 60 * time.Second,
	}
}

func (o *TelematicsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	switch o.Driver {
	case DriverSimulated:
	case DriverBridge:
		u, err := url.Parse(o.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid telematics base url %q", o.BaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telematics driver %q, must be %q or %q", o.Driver, DriverSimulated, DriverBridge))
	}

	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("telematics timeout must be positive, got %s", o.Timeout))
	}

	return errs
}

func (o *TelematicsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, "telematics.driver", o.Driver, "Vehicle data source: 'bridge' or 'simulated'. The simulated vehicle writes synthetic samples to the log.")
	fs.StringVar(&o.BaseURL, "telematics.base-url", o.BaseURL, "Base URL of the vehicle gateway (bridge driver).")
	fs.DurationVar(&o.Timeout, "telematics.timeout", o.Timeout, "Timeout for each vendor request.")
	fs.DurationVar(&o.StaleAfter, "telematics.stale-after", o.StaleAfter, "Age the simulated cache reports after each update (simulated driver).")
}

package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*PollOptions)(nil)

// PollOptions controls the background scheduler and its rate budget.
type PollOptions struct {
	// Enabled starts the background scheduler when true.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// RequestsPerDay is the account-wide budget of heavy vendor requests.
	RequestsPerDay int `json:"requests-per-day" mapstructure:"requests-per-day"`
}

// NewPollOptions returns the defaults: scheduler off, 30 requests per day.
func NewPollOptions() *PollOptions {
	return &PollOptions{
		Enabled:        false,
		RequestsPerDay: 30,
	}
}

func (o *PollOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.RequestsPerDay <= 0 || o.RequestsPerDay > 86400 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 86400, got %d", EnvBindings[FlagPollRequestsPerDay], o.RequestsPerDay))
	}
	return errs
}

func (o *PollOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, FlagPollEnabled, o.Enabled, "Start the background poll scheduler (env BLUELINKUPDATE).")
	fs.IntVar(&o.RequestsPerDay, FlagPollRequestsPerDay, o.RequestsPerDay, "Maximum vendor requests per 24 hours (env BLUELINKLIMIT).")
}

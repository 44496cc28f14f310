package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions locates the durable sample log.
type StoreOptions struct {
	Path string `json:"path" mapstructure:"path"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Path: "./vehicle_data.csv",
	}
}

func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Path == "" {
		return []error{errors.New("store path must not be empty")}
	}
	return nil
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, FlagStorePath, o.Path, "Path of the CSV sample log (env BLUELINKLOGFILE).")
}

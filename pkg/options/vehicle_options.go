package options

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

var _ IOptions = (*VehicleOptions)(nil)

// VehicleOptions holds the vendor account credentials and the target vehicle.
type VehicleOptions struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	PIN      string `json:"-" mapstructure:"pin"`

	// Region and Brand are the vendor's numeric codes, kept as text so a
	// missing value can be told apart from zero.
	Region string `json:"region" mapstructure:"region"`
	Brand  string `json:"brand" mapstructure:"brand"`

	VehicleID string `json:"id" mapstructure:"id"`
}

// NewVehicleOptions returns empty vehicle options; every field is required.
func NewVehicleOptions() *VehicleOptions {
	return &VehicleOptions{}
}

// RegionCode returns the parsed region code. Call after Validate.
func (o *VehicleOptions) RegionCode() int {
	n, _ := strconv.Atoi(o.Region)
	return n
}

// BrandCode returns the parsed brand code. Call after Validate.
func (o *VehicleOptions) BrandCode() int {
	n, _ := strconv.Atoi(o.Brand)
	return n
}

// Validate reports every missing credential at once.
func (o *VehicleOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	required := []struct {
		value string
		flag  string
	}{
		{o.Username, FlagVehicleUsername},
		{o.Password, FlagVehiclePassword},
		{o.PIN, FlagVehiclePIN},
		{o.Region, FlagVehicleRegion},
		{o.Brand, FlagVehicleBrand},
		{o.VehicleID, FlagVehicleID},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, &MissingError{Env: EnvBindings[r.flag], Flag: r.flag})
		}
	}

	if o.Region != "" {
		if _, err := strconv.Atoi(o.Region); err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer region code: %w", EnvBindings[FlagVehicleRegion], err))
		}
	}
	if o.Brand != "" {
		if _, err := strconv.Atoi(o.Brand); err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer brand code: %w", EnvBindings[FlagVehicleBrand], err))
		}
	}

	return errs
}

// AddFlags adds flags for the vendor account to the specified FlagSet.
func (o *VehicleOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Username, FlagVehicleUsername, o.Username, "Vendor account username (env BLUELINKUSER).")
	fs.StringVar(&o.Password, FlagVehiclePassword, o.Password, "Vendor account password (env BLUELINKPASS).")
	fs.StringVar(&o.PIN, FlagVehiclePIN, o.PIN, "Vendor account PIN (env BLUELINKPIN).")
	fs.StringVar(&o.Region, FlagVehicleRegion, o.Region, "Vendor region code (env BLUELINKREGION).")
	fs.StringVar(&o.Brand, FlagVehicleBrand, o.Brand, "Vendor brand code (env BLUELINKBRAND).")
	fs.StringVar(&o.VehicleID, FlagVehicleID, o.VehicleID, "Identifier of the vehicle to monitor (env BLUELINKVID).")
}

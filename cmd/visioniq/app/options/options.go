package options

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"visioniq.io/visioniq/internal/monitor"
	"visioniq.io/visioniq/pkg/log"
	"visioniq.io/visioniq/pkg/options"
)

// DotEnvFile is loaded from the working directory when present. Variables
// already in the environment win.
const DotEnvFile = ".env"

type VisionIQOptions struct {
	VehicleOptions    *options.VehicleOptions    `json:"vehicle" mapstructure:"vehicle"`
	PollOptions       *options.PollOptions       `json:"poll" mapstructure:"poll"`
	StoreOptions      *options.StoreOptions      `json:"store" mapstructure:"store"`
	TelematicsOptions *options.TelematicsOptions `json:"telematics" mapstructure:"telematics"`
	HttpOptions       *options.HttpOptions       `json:"http" mapstructure:"http"`
	S3Options         *options.S3Options         `json:"s3" mapstructure:"s3"`
	MqttOptions       *options.MqttOptions       `json:"mqtt" mapstructure:"mqtt"`
	RedisOptions      *options.RedisOptions      `json:"redis" mapstructure:"redis"`
	Log               *log.Options               `json:"log" mapstructure:"log"`
}

func NewVisionIQOptions() *VisionIQOptions {
	return &VisionIQOptions{
		VehicleOptions:    options.NewVehicleOptions(),
		PollOptions:       options.NewPollOptions(),
		StoreOptions:      options.NewStoreOptions(),
		TelematicsOptions: options.NewTelematicsOptions(),
		HttpOptions:       options.NewHttpOptions(),
		S3Options:         options.NewS3Options(),
		MqttOptions:       options.NewMqttOptions(),
		RedisOptions:      options.NewRedisOptions(),
		Log:               log.NewOptions(),
	}
}

func (o *VisionIQOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.VehicleOptions.AddFlags(fss.FlagSet("Vehicle"))
	o.PollOptions.AddFlags(fss.FlagSet("Poll"))
	o.StoreOptions.AddFlags(fss.FlagSet("Store"))
	o.TelematicsOptions.AddFlags(fss.FlagSet("Telematics"))
	o.HttpOptions.AddFlags(fss.FlagSet("HTTP"))
	o.S3Options.AddFlags(fss.FlagSet("S3 Archive"))
	o.MqttOptions.AddFlags(fss.FlagSet("MQTT"))
	o.RedisOptions.AddFlags(fss.FlagSet("Redis"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

// Complete fills every flag that was not given on the command line from its
// environment variable, after loading the .env file.
func (o *VisionIQOptions) Complete(flags *pflag.FlagSet) error {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	return BindEnv(flags)
}

// BindEnv applies flag > environment > default precedence for every flag
// with an environment variable equivalent. viper resolves the value; an
// empty variable counts as unset.
func BindEnv(flags *pflag.FlagSet) error {
	v := viper.New()

	var errs []error
	for name, env := range options.EnvBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := v.BindEnv(name, env); err != nil {
			errs = append(errs, err)
			continue
		}

		value := v.GetString(name)
		if name == options.FlagPollEnabled {
			value = normalizeEnabled(value)
		}
		if value == flag.Value.String() {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", env, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// normalizeEnabled accepts the spellings the deployment has always used and
// treats anything else as off.
func normalizeEnabled(v string) string {
	switch v {
	case "True", "true", "1":
		return "true"
	default:
		return "false"
	}
}

// Validate checks everything serve and poll need.
func (o *VisionIQOptions) Validate() error {
	var errs []error
	errs = append(errs, o.VehicleOptions.Validate()...)
	errs = append(errs, o.PollOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.TelematicsOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// ValidateHistory checks only what reading the log needs.
func (o *VisionIQOptions) ValidateHistory() error {
	var errs []error
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *VisionIQOptions) Config() (*monitor.Config, error) {
	return &monitor.Config{
		VehicleOptions:    o.VehicleOptions,
		PollOptions:       o.PollOptions,
		StoreOptions:      o.StoreOptions,
		TelematicsOptions: o.TelematicsOptions,
		HttpOptions:       o.HttpOptions,
		S3Options:         o.S3Options,
		MqttOptions:       o.MqttOptions,
		RedisOptions:      o.RedisOptions,
	}, nil
}

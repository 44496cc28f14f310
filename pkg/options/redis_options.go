package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions configures the optional latest-state mirror. It is disabled
// while Addr is empty.
type RedisOptions struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"-" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl"`
}

func NewRedisOptions() *RedisOptions {
	return &RedisOptions{}
}

// Enabled reports whether a Redis address was configured.
func (o *RedisOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

func (o *RedisOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}
	if o.DB < 0 {
		errs = append(errs, errors.New("redis db must not be negative"))
	}
	if o.TTL < 0 {
		errs = append(errs, errors.New("redis ttl must not be negative"))
	}
	return errs
}

func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "redis.addr", o.Addr, "Redis address for mirroring the latest vehicle state. Empty disables mirroring.")
	fs.StringVar(&o.Password, "redis.password", o.Password, "Redis password.")
	fs.IntVar(&o.DB, "redis.db", o.DB, "Redis database number.")
	fs.DurationVar(&o.TTL, "redis.ttl", o.TTL, "Expiry of the mirrored state key. Zero keeps it until overwritten.")
}

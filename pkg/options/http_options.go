package options

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions contains configuration items related to the HTTP front end.
type HttpOptions struct {
	// Host is the interface to bind. Empty or 0.0.0.0 means all interfaces.
	Host string `json:"host" mapstructure:"host"`

	// Port is the TCP port to listen on.
	Port int `json:"port" mapstructure:"port"`

	// ShutdownTimeout bounds graceful shutdown once the server is asked to stop.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Host:            "0.0.0.0",
		Port:            8001,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Addr returns the host:port bind address.
func (o *HttpOptions) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errors []error

	if err := ValidateAddress(o.Addr()); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the HTTP server to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Host, FlagHttpHost, o.Host, "Interface the HTTP server binds to (env BLUELINKHOST).")
	fs.IntVar(&o.Port, FlagHttpPort, o.Port, "Port the HTTP server listens on (env BLUELINKPORT).")
	fs.DurationVar(&o.ShutdownTimeout, "http.shutdown-timeout", o.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
}

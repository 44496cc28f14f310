package options

// Flag names that have an environment variable equivalent.
const (
	FlagVehicleUsername    = "vehicle.username"
	FlagVehiclePassword    = "vehicle.password"
	FlagVehiclePIN         = "vehicle.pin"
	FlagVehicleRegion      = "vehicle.region"
	FlagVehicleBrand       = "vehicle.brand"
	FlagVehicleID          = "vehicle.id"
	FlagPollEnabled        = "poll.enabled"
	FlagPollRequestsPerDay = "poll.requests-per-day"
	FlagHttpPort           = "http.port"
	FlagHttpHost           = "http.host"
	FlagStorePath          = "store.path"
)

// EnvBindings maps flag names to the environment variables the deployment
// has always used.
var EnvBindings = map[string]string{
	FlagVehicleUsername:    "BLUELINKUSER",
	FlagVehiclePassword:    "BLUELINKPASS",
	FlagVehiclePIN:         "BLUELINKPIN",
	FlagVehicleRegion:      "BLUELINKREGION",
	FlagVehicleBrand:       "BLUELINKBRAND",
	FlagVehicleID:          "BLUELINKVID",
	FlagPollEnabled:        "BLUELINKUPDATE",
	FlagPollRequestsPerDay: "BLUELINKLIMIT",
	FlagHttpPort:           "BLUELINKPORT",
	FlagHttpHost:           "BLUELINKHOST",
	FlagStorePath:          "BLUELINKLOGFILE",
}

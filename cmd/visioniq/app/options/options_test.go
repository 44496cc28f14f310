package options

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func parse(t *testing.T, o *VisionIQOptions, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	for _, f := range o.Flags().FlagSets {
		fs.AddFlagSet(f)
	}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestBindEnvPrecedence(t *testing.T) {
	t.Setenv("BLUELINKUSER", "alice")
	t.Setenv("BLUELINKPIN", "0000")
	t.Setenv("BLUELINKLIMIT", "48")
	t.Setenv("BLUELINKPORT", "9100")

	o := NewVisionIQOptions()
	fs := parse(t, o, "--vehicle.pin=1234")

	if err := BindEnv(fs); err != nil {
		t.Fatal(err)
	}

	if o.VehicleOptions.Username != "alice" {
		t.Errorf("username = %q, want env value", o.VehicleOptions.Username)
	}
	if o.VehicleOptions.PIN != "1234" {
		t.Errorf("pin = %q, want flag value", o.VehicleOptions.PIN)
	}
	if o.PollOptions.RequestsPerDay != 48 || o.HttpOptions.Port != 9100 {
		t.Errorf("limit/port = %d/%d, want 48/9100", o.PollOptions.RequestsPerDay, o.HttpOptions.Port)
	}
	if o.StoreOptions.Path != "./vehicle_data.csv" {
		t.Errorf("store path = %q, want default", o.StoreOptions.Path)
	}
}

func TestBindEnvEmptyVariableKeepsDefault(t *testing.T) {
	t.Setenv("BLUELINKHOST", "")
	t.Setenv("BLUELINKLOGFILE", "/data/vehicle_data.csv")

	o := NewVisionIQOptions()
	if err := BindEnv(parse(t, o, "--store.path=/tmp/override.csv")); err != nil {
		t.Fatal(err)
	}
	if o.HttpOptions.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", o.HttpOptions.Host)
	}
	if o.StoreOptions.Path != "/tmp/override.csv" {
		t.Errorf("store path = %q, want flag value", o.StoreOptions.Path)
	}
}

func TestBindEnvUpdateSwitch(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"True", true},
		{"true", true},
		{"1", true},
		{"yes", false},
		{"False", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("BLUELINKUPDATE", tt.value)

			o := NewVisionIQOptions()
			if err := BindEnv(parse(t, o)); err != nil {
				t.Fatal(err)
			}
			if o.PollOptions.Enabled != tt.want {
				t.Errorf("enabled = %v, want %v", o.PollOptions.Enabled, tt.want)
			}
		})
	}
}

func TestBindEnvRejectsBadNumber(t *testing.T) {
	t.Setenv("BLUELINKLIMIT", "lots")

	o := NewVisionIQOptions()
	err := BindEnv(parse(t, o))
	if err == nil || !strings.Contains(err.Error(), "BLUELINKLIMIT") {
		t.Errorf("err = %v, want BLUELINKLIMIT error", err)
	}
}

func TestValidateListsEveryMissingVariable(t *testing.T) {
	o := NewVisionIQOptions()

	err := o.Validate()
	if err == nil {
		t.Fatal("Validate accepted empty credentials")
	}
	for _, env := range []string{"BLUELINKUSER", "BLUELINKPASS", "BLUELINKPIN", "BLUELINKREGION", "BLUELINKBRAND", "BLUELINKVID"} {
		if !strings.Contains(err.Error(), env) {
			t.Errorf("error does not mention %s: %v", env, err)
		}
	}

	if err := o.ValidateHistory(); err != nil {
		t.Errorf("history needs no credentials: %v", err)
	}
}

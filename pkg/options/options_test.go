package options

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8001", false},
		{":8001", false},
		{"localhost:6379", false},
		{"[::1]:8001", false},
		{"localhost", true},
		{"0.0.0.0:0", true},
		{"0.0.0.0:70000", true},
		{"host name:80", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestVehicleOptionsReportsEveryMissingVariable(t *testing.T) {
	errs := NewVehicleOptions().Validate()
	if len(errs) != 6 {
		t.Fatalf("got %d errors, want 6: %v", len(errs), errs)
	}

	var joined []string
	for _, err := range errs {
		if !errors.Is(err, ErrMissingRequired) {
			t.Errorf("error %v does not wrap ErrMissingRequired", err)
		}
		joined = append(joined, err.Error())
	}

	msg := strings.Join(joined, "\n")
	for _, env := range []string{"BLUELINKUSER", "BLUELINKPASS", "BLUELINKPIN", "BLUELINKREGION", "BLUELINKBRAND", "BLUELINKVID"} {
		if !strings.Contains(msg, env) {
			t.Errorf("missing %s in %q", env, msg)
		}
	}
}

func TestVehicleOptionsCodes(t *testing.T) {
	o := &VehicleOptions{
		Username:  "driver@example.com",
		Password:  "secret",
		PIN:       "1234",
		Region:    "3",
		Brand:     "x",
		VehicleID: "KMHC8",
	}

	errs := o.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "BLUELINKBRAND") {
		t.Fatalf("want one brand error, got %v", errs)
	}

	o.Brand = "2"
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if o.RegionCode() != 3 || o.BrandCode() != 2 {
		t.Errorf("codes = %d/%d, want 3/2", o.RegionCode(), o.BrandCode())
	}
}

func TestPollOptionsValidate(t *testing.T) {
	o := NewPollOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("defaults invalid: %v", errs)
	}

	o.RequestsPerDay = 0
	if errs := o.Validate(); len(errs) != 1 {
		t.Fatalf("want one error for zero budget, got %v", errs)
	}
}

func TestOptionalGroupsDisabledByDefault(t *testing.T) {
	if NewS3Options().Enabled() {
		t.Error("s3 archive enabled by default")
	}
	if NewMqttOptions().Enabled() {
		t.Error("mqtt notifier enabled by default")
	}
	if NewRedisOptions().Enabled() {
		t.Error("redis mirror enabled by default")
	}

	r := NewRedisOptions()
	r.Addr = "redis:6379"
	r.DB = -1
	if errs := r.Validate(); len(errs) != 1 {
		t.Errorf("want one redis error, got %v", errs)
	}
}

func TestTelematicsOptionsDefaultToRealVehicle(t *testing.T) {
	if got := NewTelematicsOptions().Driver; got != DriverBridge {
		t.Errorf("default driver = %q, want %q", got, DriverBridge)
	}
}

func TestTelematicsOptionsValidate(t *testing.T) {
	o := NewTelematicsOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("defaults invalid: %v", errs)
	}

	o.Driver = DriverBridge
	o.BaseURL = "not a url"
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("want one base-url error, got %v", errs)
	}

	o.Driver = "carrier-pigeon"
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("want one driver error, got %v", errs)
	}
}

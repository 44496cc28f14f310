package simulated

import (
	"context"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"visioniq.io/visioniq/internal/telematics"
)

func TestVehicleLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktesting.NewFakeClock(now)
	v := New("KMHC8", clk, 2*time.Hour)

	state, err := v.GetVehicle(ctx, "KMHC8")
	if err != nil || state != nil {
		t.Fatalf("before any update got %+v, %v; want nil, nil", state, err)
	}

	if err := v.UpdateCachedState(ctx, "KMHC8"); err != nil {
		t.Fatalf("UpdateCachedState: %v", err)
	}
	cached, err := v.GetVehicle(ctx, "KMHC8")
	if err != nil || cached == nil {
		t.Fatalf("GetVehicle after update: %+v, %v", cached, err)
	}
	if !cached.LastUpdatedAt.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("cached LastUpdatedAt = %v, want two hours old", cached.LastUpdatedAt)
	}
	if cached.BatteryHealth == nil || cached.Latitude == nil || cached.Longitude == nil {
		t.Error("simulated state is missing optional fields")
	}

	if err := v.ForceRefreshState(ctx, "KMHC8"); err != nil {
		t.Fatalf("ForceRefreshState: %v", err)
	}
	live, _ := v.GetVehicle(ctx, "KMHC8")
	if !live.LastUpdatedAt.Equal(now) {
		t.Errorf("live LastUpdatedAt = %v, want %v", live.LastUpdatedAt, now)
	}
	if live.Odometer <= cached.Odometer {
		t.Errorf("odometer did not advance: %v -> %v", cached.Odometer, live.Odometer)
	}
}

func TestVehicleUnknownID(t *testing.T) {
	v := New("KMHC8", clocktesting.NewFakeClock(time.Now()), 0)

	err := v.ForceRefreshState(context.Background(), "other")
	if telematics.KindOf(err) != telematics.KindKeyLookup {
		t.Errorf("KindOf = %q, want key_lookup", telematics.KindOf(err))
	}
}

func TestVehicleRecharges(t *testing.T) {
	ctx := context.Background()
	v := New("KMHC8", clocktesting.NewFakeClock(time.Now()), 0)

	for i := 0; i < 100; i++ {
		if err := v.UpdateCachedState(ctx, "KMHC8"); err != nil {
			t.Fatal(err)
		}
		s, _ := v.GetVehicle(ctx, "KMHC8")
		if s.BatteryPercentage < rechargeFloor || s.BatteryPercentage > 100 {
			t.Fatalf("update %d: charge %v out of range", i, s.BatteryPercentage)
		}
	}
}

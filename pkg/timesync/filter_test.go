// ABOUTME: Tests for the drift-compensating time filter
// ABOUTME: Covers initialization, rejection paths, drift tracking, convergence
package timesync

import (
	"math"
	"testing"
	"time"
)

func TestFilterInitialMeasurement(t *testing.T) {
	f := NewFilter()

	if f.IsReady() {
		t.Error("Expected fresh filter to not be ready")
	}

	if !f.AddMeasurement(1000, 500, 100000, 200) {
		t.Fatal("Expected first measurement to be accepted")
	}

	if !f.IsReady() {
		t.Error("Expected filter to be ready after first measurement")
	}
	if f.IsConverged() {
		t.Error("Expected filter to not be converged after one measurement")
	}
	if got := f.OffsetMicros(); got != 1000 {
		t.Errorf("Expected offset 1000, got %d", got)
	}
	if got := f.ErrorMicros(); got != 500 {
		t.Errorf("Expected error 500, got %d", got)
	}
	if got := f.DriftPPM(); got != 0 {
		t.Errorf("Expected zero drift after first measurement, got %f", got)
	}
}

func TestFilterRejectsNonMonotonic(t *testing.T) {
	f := NewFilter()
	f.AddMeasurement(1000, 500, 200000, 200)

	if f.AddMeasurement(1100, 500, 200000, 200) {
		t.Error("Expected equal receive time to be rejected")
	}
	if f.AddMeasurement(1100, 500, 150000, 200) {
		t.Error("Expected earlier receive time to be rejected")
	}
	if got := f.OffsetMicros(); got != 1000 {
		t.Errorf("Expected offset unchanged at 1000, got %d", got)
	}
}

func TestFilterDriftInitialization(t *testing.T) {
	f := NewFilter()

	// Offset grows 100μs over one second: 100ppm drift
	f.AddMeasurement(1000, 500, 0, 200)
	if !f.AddMeasurement(1100, 500, 1000000, 200) {
		t.Fatal("Expected second measurement to be accepted")
	}

	if got := f.DriftPPM(); math.Abs(got-100) > 0.001 {
		t.Errorf("Expected drift 100ppm, got %f", got)
	}
	if got := f.OffsetMicros(); got != 1100 {
		t.Errorf("Expected offset 1100, got %d", got)
	}
}

func TestFilterRejectsLargeResidual(t *testing.T) {
	f := NewFilter()
	f.AddMeasurement(1000, 500, 0, 200)
	f.AddMeasurement(1000, 500, 1000000, 200)

	// A 60ms jump is beyond the residual gate
	if f.AddMeasurement(61000, 500, 2000000, 200) {
		t.Error("Expected large residual to be rejected")
	}
	if got := f.OffsetMicros(); got != 1000 {
		t.Errorf("Expected offset unchanged at 1000, got %d", got)
	}

	// A small residual is still accepted afterwards
	if !f.AddMeasurement(1010, 500, 3000000, 200) {
		t.Error("Expected small residual to be accepted")
	}
}

func TestFilterConvergence(t *testing.T) {
	f := NewFilter()

	for i := 0; i < 7; i++ {
		f.AddMeasurement(1000, 1000, int64(i+1)*1000000, 200)
		if f.IsConverged() {
			t.Fatalf("Expected no convergence after %d measurements", i+1)
		}
	}

	f.AddMeasurement(1000, 1000, 8000000, 200)
	if !f.IsConverged() {
		t.Error("Expected convergence after 8 stable measurements")
	}

	// A burst of large residuals re-inflates the error estimate
	for i := 0; i < 20; i++ {
		jump := int64(40000)
		if i%2 == 1 {
			jump = -40000
		}
		f.AddMeasurement(1000+jump, 1000, int64(9+i)*1000000, 200)
	}
	if f.IsConverged() {
		t.Error("Expected convergence to degrade under unstable measurements")
	}
}

func TestFilterTracksSteadyDrift(t *testing.T) {
	f := NewFilter()

	// Server clock gains 100μs per second relative to the client
	for i := 0; i < 10; i++ {
		f.AddMeasurement(int64(i)*100, 500, int64(i)*1000000, 200)
	}

	if got := f.DriftPPM(); math.Abs(got-100) > 1 {
		t.Errorf("Expected drift near 100ppm, got %f", got)
	}
}

func TestFilterClampsDrift(t *testing.T) {
	f := NewFilter()

	// 10000ppm apparent drift, far past the clamp
	f.AddMeasurement(0, 500, 0, 200)
	f.AddMeasurement(10000, 500, 1000000, 200)

	if got := f.DriftPPM(); got > 500.001 {
		t.Errorf("Expected drift clamped to 500ppm, got %f", got)
	}
}

func TestServerToLocalTimeBeforeSync(t *testing.T) {
	f := NewFilter()

	got := f.ServerToLocalTime(5000000)
	want := time.Unix(5, 0)
	if !got.Equal(want) {
		t.Errorf("Expected %v before sync, got %v", want, got)
	}
}

func TestServerToLocalTimeAppliesOffset(t *testing.T) {
	f := NewFilter()
	f.offset = 250000
	f.samples = 3

	serverMicros := int64(10000000)
	got := f.ServerToLocalTime(serverMicros)
	if got.UnixMicro() != serverMicros-250000 {
		t.Errorf("Expected local time %d, got %d", serverMicros-250000, got.UnixMicro())
	}
}

func TestNowServerMicrosAppliesOffset(t *testing.T) {
	f := NewFilter()
	f.offset = 1000000
	f.samples = 1
	f.lastAt = time.Now().UnixMicro()

	now := time.Now().UnixMicro()
	got := f.NowServerMicros()
	diff := got - now - 1000000
	if diff < -100000 || diff > 100000 {
		t.Errorf("Expected server time about 1s ahead, got diff %dμs", diff)
	}
}

func TestFilterQuality(t *testing.T) {
	f := NewFilter()

	if got := f.CheckQuality(); got != QualityLost {
		t.Errorf("Expected QualityLost before sync, got %v", got)
	}

	f.AddMeasurement(1000, 500, 1000000, 10000)
	if got := f.CheckQuality(); got != QualityGood {
		t.Errorf("Expected QualityGood with low RTT, got %v", got)
	}

	f.AddMeasurement(1000, 500, 2000000, 60000)
	if got := f.CheckQuality(); got != QualityDegraded {
		t.Errorf("Expected QualityDegraded with high RTT, got %v", got)
	}

	f.lastSync = time.Now().Add(-6 * time.Second)
	if got := f.CheckQuality(); got != QualityLost {
		t.Errorf("Expected QualityLost after stale sync, got %v", got)
	}
}

func TestQualityString(t *testing.T) {
	tests := []struct {
		quality Quality
		want    string
	}{
		{QualityGood, "good"},
		{QualityDegraded, "degraded"},
		{QualityLost, "lost"},
	}

	for _, tt := range tests {
		if got := tt.quality.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

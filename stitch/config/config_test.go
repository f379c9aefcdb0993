package config

import "testing"

func TestNewDefaults(t *testing.T) {
	c := New()
	if c.Logger == nil {
		t.Error("New().Logger = nil, want a default no-op logger")
	}
	if c.NumOctaves == 0 || c.NumScales == 0 {
		t.Error("New() left pyramid dimensions unset")
	}
	if !c.EstimateCamera {
		t.Error("New().EstimateCamera = false, want true by default")
	}
}

func TestValidateForcesCylindricalWithoutCameraEstimation(t *testing.T) {
	c := &Config{EstimateCamera: false, Projection: ProjectionSpherical}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.Projection != ProjectionCylindrical {
		t.Errorf("Projection = %v, want ProjectionCylindrical when EstimateCamera is false", c.Projection)
	}
}

func TestValidateFillsZeroFields(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.MatchRatio == 0 || c.RANSACIterations == 0 || c.LMMaxIter == 0 {
		t.Error("Validate() left numeric defaults unset")
	}
}

package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestPrettyWithoutColor(t *testing.T) {
	origNoColor := color.NoColor
	origVersion := Version
	defer func() {
		color.NoColor = origNoColor
		Version = origVersion
	}()
	color.NoColor = true

	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := Pretty(); got != tt.want {
			t.Errorf("Pretty() with %q = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestPrettyWithColor(t *testing.T) {
	origNoColor := color.NoColor
	defer func() { color.NoColor = origNoColor }()
	color.NoColor = false

	if got := Pretty(); got == Version {
		t.Errorf("Pretty() = %q, want escape sequences", got)
	}
}

func TestCurrent(t *testing.T) {
	origCommit := GitCommit
	defer func() { GitCommit = origCommit }()
	GitCommit = "abc123"

	info := Current()
	if info.Version != Version || info.GitCommit != "abc123" {
		t.Errorf("Current() = %+v", info)
	}
}

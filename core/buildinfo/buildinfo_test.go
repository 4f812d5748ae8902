package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestFillDefaults(t *testing.T) {
	t.Cleanup(func() { Version, Commit, Date = "dev", "", "" })

	Version, Commit, Date = "dev", "", ""
	fillDefaults([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2025-08-30T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	if Commit != "0123456-dirty" || Date != "2025-08-30T12:00:00Z" {
		t.Fatalf("Commit=%q Date=%q", Commit, Date)
	}

	Version, Commit, Date = "v1.0.0", "stamped", ""
	fillDefaults([]debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}})
	if Commit != "stamped" {
		t.Fatalf("stamped commit overwritten: %q", Commit)
	}

	Version, Commit, Date = "dev", "", ""
	fillDefaults(nil)
	if Commit != "local" {
		t.Fatalf("Commit = %q, want local", Commit)
	}
}

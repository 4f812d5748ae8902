// Package buildinfo exposes version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/m3rciful/qarelay/core/buildinfo.Version=v1.2.3 \
//	  -X github.com/m3rciful/qarelay/core/buildinfo.Commit=abcdef0 \
//	  -X github.com/m3rciful/qarelay/core/buildinfo.Date=2025-08-30T12:00:00Z"
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package buildinfo

import "runtime/debug"

var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the source revision of the build.
	Commit = ""
	// Date is the build or commit time in RFC3339.
	Date = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		fillDefaults(nil)
		return
	}
	fillDefaults(info.Settings)
}

func fillDefaults(settings []debug.BuildSetting) {
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	switch {
	case Commit == "":
		Commit = "local"
	case dirty && Version == "dev":
		Commit += "-dirty"
	}
}

// Package version reports the doctool build.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X git.home.luguber.info/inful/doctool/internal/version.Version=v0.3.0".
// Values left at "unknown" are filled from the module build info when possible.
var (
	Version   = "unknown"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info is the resolved build description.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Get resolves the build description.
func Get() Info {
	info := Info{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	return info
}

func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "unknown" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		case s.Key == "vcs.time" && info.BuildTime == "unknown":
			info.BuildTime = s.Value
		}
	}
}

func (i Info) String() string {
	return fmt.Sprintf("doctool %s (commit %s, built %s)", i.Version, i.Commit, i.BuildTime)
}

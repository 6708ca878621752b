// Package version reports which build of synthchain is running.
package version

import "runtime/debug"

// Version is set at link time:
// go build -ldflags "-X github.com/luguan/synthchain/version.Version=$(git describe --dirty)"
var Version string

// Revision is the short VCS revision recorded by the go tool, with a -dirty
// suffix for builds from a modified tree. It is empty outside a checkout.
var Revision = revision(debug.ReadBuildInfo())

func revision(info *debug.BuildInfo, ok bool) string {
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// String returns Version when set, then Revision, then "devel".
func String() string {
	switch {
	case Version != "":
		return Version
	case Revision != "":
		return Revision
	}
	return "devel"
}

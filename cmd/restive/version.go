package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var embeddedVersion string

// Version reports the module version for `go install`ed binaries, and
// "devel-<VERSION>[+rev][-dirty]" for builds from a checkout.
func Version() string {
	base := strings.TrimSpace(embeddedVersion)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return base
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return develVersion(base, info.Settings)
}

func develVersion(base string, settings []debug.BuildSetting) string {
	v := "devel-" + base
	var modified bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) >= 7 {
				v += "+" + s.Value[:7]
			}
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if modified {
		v += "-dirty"
	}
	return v
}

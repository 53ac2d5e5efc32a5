// Package buildinfo carries version metadata set at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/animbot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/animbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/animbot/core/buildinfo.Date=2026-10-18T12:00:00Z'" ./cmd/animbot
//
// Without ldflags, Commit and Date fall back to the VCS stamp the go tool
// embeds in the binary.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fillFromVCS(bi.Settings)
}

func fillFromVCS(settings []debug.BuildSetting) {
	dirty := false
	rev := ""
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if Commit == "local" && rev != "" {
		Commit = rev[:min(len(rev), 12)]
		if dirty {
			Commit += "-dirty"
		}
	}
}

// String renders "animbot <version> (<commit>, <date>)".
func String() string {
	var b strings.Builder
	b.WriteString("animbot ")
	b.WriteString(Version)
	b.WriteString(" (")
	b.WriteString(Commit)
	if Date != "" {
		b.WriteString(", ")
		b.WriteString(Date)
	}
	b.WriteByte(')')
	return b.String()
}

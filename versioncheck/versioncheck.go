// Package versioncheck backs the --version flag: it prints the build
// version and, best-effort, compares it against a known-latest version
// string using semantic-version ordering. It never blocks or gates a sync —
// it is pure CLI-shell glue, per spec.md §1.
package versioncheck

import (
	"fmt"
	"io"

	"golang.org/x/mod/semver"
)

// Version is set at build time via -ldflags. "dev" means a local build, for
// which no update notice is ever printed.
var Version = "dev"

// LatestKnown is set at build time (or left empty) to the newest released
// version known at build time. An empty value disables the notice entirely,
// since there is nothing to compare against without a network call this
// tool deliberately does not make on every invocation.
var LatestKnown = ""

// PrintVersion writes the version line and, if a newer LatestKnown version
// is compiled in, a one-line update notice.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "git-sync-world %s\n", Version)
	if notice, ok := updateNotice(Version, LatestKnown); ok {
		fmt.Fprintln(w, notice)
	}
}

func updateNotice(current, latest string) (string, bool) {
	if current == "dev" || current == "" || latest == "" {
		return "", false
	}
	c, l := normalize(current), normalize(latest)
	if !semver.IsValid(c) || !semver.IsValid(l) {
		return "", false
	}
	if semver.Compare(c, l) >= 0 {
		return "", false
	}
	return fmt.Sprintf("a newer version is available: %s (you have %s)", latest, current), true
}

// normalize prefixes a bare "1.2.3" with "v", which semver requires.
func normalize(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}

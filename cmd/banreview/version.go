package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is the number of revision characters printed.
const shortCommitLen = 7

// buildSetting returns a VCS setting recorded by the Go toolchain.
func buildSetting(key string) (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value, true
		}
	}
	return "", false
}

// firstNonEmpty returns the first non-empty value, or fallback.
func firstNonEmpty(fallback string, values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return fallback
}

// getVersion prefers the ldflags value, then the module version.
func getVersion() string {
	var module string
	if info, ok := debug.ReadBuildInfo(); ok {
		module = info.Main.Version
	}
	return firstNonEmpty("(devel)", version, module)
}

// getCommit prefers the ldflags value, then the VCS revision, shortened.
func getCommit() string {
	rev, _ := buildSetting("vcs.revision")
	if len(rev) > shortCommitLen {
		rev = rev[:shortCommitLen]
	}
	return firstNonEmpty("unknown", commit, rev)
}

// getDate prefers the ldflags value, then the VCS commit time.
func getDate() string {
	t, _ := buildSetting("vcs.time")
	return firstNonEmpty("unknown", date, t)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the banreview version",
		Long:  `Print the version, commit and build date of this banreview binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "banreview version %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", getCommit())
			fmt.Fprintf(out, "  built:  %s\n", getDate())
		},
	}
}

package main

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X main.buildChangeID=... -X main.buildCommitID=...".
var buildChangeID = "unknown"
var buildCommitID = "unknown"

// readBuildInfo is swapped out by tests.
var readBuildInfo = debug.ReadBuildInfo

func init() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// versionString reports the stamped change and commit, or the module version
// when tkt was installed with go install and nothing was stamped.
func versionString() string {
	if buildChangeID == "unknown" && buildCommitID == "unknown" {
		if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return "tkt " + info.Main.Version
		}
	}
	return fmt.Sprintf("change_id %s\ncommit_id %s", buildChangeID, buildCommitID)
}

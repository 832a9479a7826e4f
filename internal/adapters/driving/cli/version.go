package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, commit and Go toolchain",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("reportqa version %s\n", version)
		if commit := buildCommit(); commit != "" {
			cmd.Printf("commit: %s\n", commit)
		}
		cmd.Printf("go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// buildCommit returns the short VCS revision stamped by `go build`, marked
// dirty when the tree had local changes.
func buildCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision == "" {
		return ""
	}
	return revision + dirty
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

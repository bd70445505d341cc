package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapdemo/pkg/cli/internal/output"
)

// VersionOutput is the JSON form of soapdemo version.
type VersionOutput struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show soapdemo version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := resolveVersion()
		if jsonOutput {
			return outputJSON(cmd, info)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "soapdemo %s (%s, %s)\n%s %s\n",
			displayVersion(info.Version), info.Commit, info.Date, info.Go, info.Platform)
		return err
	},
}

// resolveVersion starts from the ldflags values and falls back to the VCS
// stamp the toolchain embeds for values left at their defaults.
func resolveVersion() VersionOutput {
	out := VersionOutput{
		Version:  Version,
		Commit:   Commit,
		Date:     BuildDate,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	vcs := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		vcs[s.Key] = s.Value
	}

	if out.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	if rev := vcs["vcs.revision"]; out.Commit == "none" && rev != "" {
		out.Commit = rev
		if vcs["vcs.modified"] == "true" {
			out.Commit += "-dirty"
		}
	}
	if t := vcs["vcs.time"]; out.Date == "unknown" && t != "" {
		out.Date = t
	}
	return out
}

// displayVersion adds the v prefix to bare semver strings.
func displayVersion(v string) string {
	if v == "" || v == "dev" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func outputJSON(cmd *cobra.Command, v any) error {
	return output.JSON(cmd.OutOrStdout(), v)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func VersionCmd(info Info, isReleaseBuild bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Print the version of espdeploy",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			version := info.Version
			if !isReleaseBuild {
				bi, _ := debug.ReadBuildInfo()
				version = buildVersion(info.Version, bi)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "espdeploy version:\t%s\n", version)
			fmt.Fprintf(out, "Build date:\t\t%s\n", info.Date)
			if !isReleaseBuild {
				fmt.Fprintln(out, "Build type:\t\tdevelopment")
			}
		},
	}
	return cmd
}

// buildVersion picks the version recorded in the binary by the Go
// toolchain. Module versions win over VCS revisions; fallback is used when
// neither is known.
func buildVersion(fallback string, bi *debug.BuildInfo) string {
	if bi == nil {
		return fallback
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var revision string
	modified := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if revision == "" {
		return fallback
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	version := fallback + "-dev-" + revision
	if modified {
		version += "-dirty"
	}
	return version
}

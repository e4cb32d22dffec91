package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/zpt"
	"github.com/aretw0/zpt/pkg/tales"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the zpt version and the built-in expression types",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "zpt %s (%s %s/%s)\n", strings.TrimSpace(zpt.Version), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if short, _ := cmd.Flags().GetBool("short"); short {
			return
		}
		fmt.Fprintf(out, "expression types: %s\n", strings.Join(tales.Standard(nil, nil).Prefixes(), ", "))
		fmt.Fprintln(out, "formats: html, xml")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "Print only the version line")
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var checkCmd = &cobra.Command{
	Use:   "check [NAME...]",
	Short: "Check templates for malformed statements",
	Long:  `Parses the named templates (all templates when none are named) and reports malformed TAL and METAL statements without rendering.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine(cmd)
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			if names, err = eng.Templates(cmd.Context()); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		profile := colorProfile(out)
		failed := 0
		for _, name := range names {
			diags, err := eng.Check(cmd.Context(), name)
			if err != nil {
				diags = []*domain.RenderError{{Source: domain.SourceInfo{Name: name}, Err: err}}
			}
			printDiagnostics(out, profile, name, diags)
			if len(diags) > 0 {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates have problems", failed, len(names))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// colorProfile enables colours only when w is a terminal.
func colorProfile(w io.Writer) termenv.Profile {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return termenv.EnvColorProfile()
	}
	return termenv.Ascii
}

func printDiagnostics(w io.Writer, p termenv.Profile, name string, diags []*domain.RenderError) {
	if len(diags) == 0 {
		fmt.Fprintf(w, "%s %s\n", p.String("ok  ").Foreground(p.Color("#4ade80")), name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", p.String("FAIL").Foreground(p.Color("#f87171")).Bold(), name)
	for _, d := range diags {
		fmt.Fprintf(w, "  %s %v\n", p.String(d.Source.String()).Faint(), d.Err)
		if d.Statement != "" {
			fmt.Fprintf(w, "      in %s=%q\n", d.Statement, d.Expression)
		}
	}
}

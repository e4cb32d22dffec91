package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var renderCmd = &cobra.Command{
	Use:   "render NAME",
	Short: "Render a template to stdout",
	Long: `Renders the template NAME from the configured store against a YAML or JSON model.
With --file, NAME is a path on disk instead; macros it loads still come from the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine(cmd)
		if err != nil {
			return err
		}

		modelPath, _ := cmd.Flags().GetString("model")
		model, err := readModel(modelPath, cmd.InOrStdin())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		ctx := cmd.Context()
		if asFile, _ := cmd.Flags().GetBool("file"); asFile {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := eng.Parse(ctx, filepath.ToSlash(args[0]), f)
			if err != nil {
				return err
			}
			return eng.RenderDocument(ctx, doc, model, out)
		}
		return eng.Render(ctx, args[0], model, out)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("model", "m", "", "YAML or JSON model file ('-' reads stdin)")
	renderCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	renderCmd.Flags().Bool("file", false, "Treat NAME as a file path")
}

// readModel decodes a YAML (or JSON) model. An empty path means no model.
func readModel(path string, stdin io.Reader) (any, error) {
	var data []byte
	var err error
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var model any
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	return model, nil
}

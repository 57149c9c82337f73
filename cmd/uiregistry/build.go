package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jfoltran/uiregistry/internal/registry"
)

var (
	buildSourceDir string
	buildOutDir    string
	buildStyle     string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build registry JSON from registry.json and component sources",
	Long: `Build reads registry.json from --source-dir, inlines every component
file and writes r/index.json and r/styles/<style>/<name>.json under --out.
The output directory can then be served with serve --public-dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := registry.Build(os.DirFS(buildSourceDir), buildStyle)
		if err != nil {
			return err
		}
		if err := out.WriteDir(buildOutDir); err != nil {
			return err
		}
		logger.Info().
			Int("items", len(out.Index.Items)).
			Str("style", out.Style).
			Str("out", buildOutDir).
			Msg("registry built")
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildSourceDir, "source-dir", ".", "Directory holding registry.json and component sources")
	f.StringVar(&buildOutDir, "out", "public", "Output directory")
	f.StringVar(&buildStyle, "style", registry.DefaultStyle, "Style name for manifest paths")
	rootCmd.AddCommand(buildCmd)
}

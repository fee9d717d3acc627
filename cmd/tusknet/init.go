package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/config"
	"github.com/sandevgo/tusknet/internal/service/ui"
)

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create the runtime directory with a .env and a sample manifest",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		runtimePath := config.GetRuntimePath()
		manifestPath := filepath.Join(runtimePath, "devices.yaml")

		envData, err := defaultEnv(manifestPath)
		if err != nil {
			return err
		}
		manifestData, err := config.SampleManifest().Marshal()
		if err != nil {
			return err
		}

		files := []struct {
			path string
			data []byte
		}{
			{config.GetEnvPath(), []byte(envData)},
			{manifestPath, manifestData},
		}
		for _, f := range files {
			err := writeFile(f.path, f.data, false)
			switch {
			case errors.Is(err, errFileExists):
				fmt.Fprintf(out, "%s %s\n", ui.DescStyle.Render("kept"), f.path)
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "%s %s\n", ui.OKStyle.Render("created"), f.path)
			}
		}

		fmt.Fprintf(out, "\nEdit %s, then run 'tusknet serve'.\n", manifestPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

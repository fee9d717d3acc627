package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/config"
	"github.com/sandevgo/tusknet/pkg/env"
)

var (
	configOutput string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configGenerateCmd = &cobra.Command{
	Use:          "generate",
	Short:        "Write a sample device manifest",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.SampleManifest().Marshal()
		if err != nil {
			return err
		}

		if configOutput == "" || configOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		if err := writeFile(configOutput, data, configForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sample manifest written to %s\n", configOutput)
		return nil
	},
}

func init() {
	configGenerateCmd.Flags().StringVarP(&configOutput, "output", "o", "-", "destination file, '-' for stdout")
	configGenerateCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configGenerateCmd)
	rootCmd.AddCommand(configCmd)
}

var errFileExists = errors.New("file already exists, use --force to overwrite")

func writeFile(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, errFileExists)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	// manifests and .env files carry credentials
	return os.WriteFile(path, data, 0600)
}

// defaultEnv renders the .env written by init.
func defaultEnv(manifestPath string) (string, error) {
	return env.MarshalEnv(&config.AppConfig{
		ManifestPath:    manifestPath,
		Transport:       config.TransportStdio,
		HTTPAddr:        "127.0.0.1:8808",
		CommandTimeout:  60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		EnableJournal:   true,
	})
}

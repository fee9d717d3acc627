package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/internal/providers/driver"
	"github.com/sandevgo/tusknet/internal/service/ui"
)

var checkFlags struct {
	host       string
	deviceType string
	username   string
	password   string
	secret     string
	port       int
	timeout    int
	command    string
}

var checkCmd = &cobra.Command{
	Use:   "check <device_id>",
	Short: "Test the connection to a device",
	Long: `Connects to a device, runs its version command and disconnects.
Flags override the manifest entry with the same device_id.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		appCfg, manifest, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		// a connectivity check leaves no trace in the journal
		dispatcher, err := newDispatcher(appCfg, manifest, nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		id := args[0]

		info, err := dispatcher.ConnectDevice(ctx, id, core.ConnectionParams{
			Host:       checkFlags.host,
			DeviceType: checkFlags.deviceType,
			Username:   checkFlags.username,
			Password:   checkFlags.password,
			Secret:     checkFlags.secret,
			Port:       checkFlags.port,
			Timeout:    time.Duration(checkFlags.timeout) * time.Second,
		})
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", ui.FailStyle.Render("FAIL"), id, err)
			return err
		}
		fmt.Fprintf(out, "%s connected to %s (%s:%d) prompt %s\n",
			ui.OKStyle.Render("OK"), id, info.Host, info.Port, ui.UsageStyle.Render(info.Prompt))

		command := checkFlags.command
		if command == "" {
			if d, ok := driver.Lookup(info.DeviceType); ok {
				command = d.VersionCommand
			}
		}

		var runErr error
		if command != "" {
			result, err := dispatcher.SendCommand(ctx, id, command, core.DefaultCommandOptions())
			if err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", ui.FailStyle.Render("FAIL"), command, err)
				runErr = err
			} else {
				fmt.Fprintf(out, "%s %s (%s)\n", ui.OKStyle.Render("OK"), command, result.Duration.Round(time.Millisecond))
				fmt.Fprintln(out, ui.OutputStyle.Render(result.Output))
			}
		}

		warning, err := dispatcher.DisconnectDevice(ctx, id)
		if err != nil {
			return err
		}
		if warning != "" {
			fmt.Fprintf(out, "%s %s\n", ui.FlagStyle.Render("WARN"), warning)
		}
		return runErr
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.host, "host", "", "device address")
	f.StringVarP(&checkFlags.deviceType, "type", "t", "", "device type, see 'tusknet types'")
	f.StringVarP(&checkFlags.username, "username", "u", "", "login username")
	f.StringVarP(&checkFlags.password, "password", "p", "", "login password")
	f.StringVar(&checkFlags.secret, "secret", "", "enable secret")
	f.IntVar(&checkFlags.port, "port", 0, "TCP port (dialect default when unset)")
	f.IntVar(&checkFlags.timeout, "timeout", 0, "connect timeout in seconds")
	f.StringVarP(&checkFlags.command, "command", "c", "", "command to run instead of the version command")
	rootCmd.AddCommand(checkCmd)
}

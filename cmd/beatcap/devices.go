package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		return listDevices(cmd, verbose)
	},
}

func init() {
	devicesCmd.Flags().BoolP("verbose", "v", false, "Show channel count, sample rate and the default marker")
}

func listDevices(cmd *cobra.Command, verbose bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := newApp(cfg, log, nil, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	if !verbose {
		names, err := application.ListDevices()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	devices, err := application.Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-40s %2d ch  %6.0f Hz\n", marker, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath string

	rootCmd = &cobra.Command{
		Use:   "trafficd",
		Short: "Traffic signal controller for Raspberry Pi GPIO",
		Long: "trafficd drives the red/green output pairs of a small intersection and\n" +
			"exposes an HTTP API to read and set signal state, including an emergency\n" +
			"override mode.",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yml", "path to the configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wiringTestCmd)
}

package main

import "os"

// Entry point for the trafficd signal controller
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

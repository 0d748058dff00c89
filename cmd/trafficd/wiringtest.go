package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trafficd/internal/config"
	"trafficd/internal/core"
	"trafficd/internal/hal"
)

var wiringShort bool

var wiringTestCmd = &cobra.Command{
	Use:   "wiringtest",
	Short: "Exercise the signal outputs to verify physical wiring",
	Long: "wiringtest drives each configured signal red, then green, then runs rapid\n" +
		"switching cycles across the whole intersection.  It talks to the hardware\n" +
		"directly and is independent of the API server.",
	RunE: runWiringTest,
}

func init() {
	wiringTestCmd.Flags().BoolVar(&wiringShort, "short", false, "use short delays (for bench testing)")
}

func runWiringTest(cmd *cobra.Command, args []string) error {
	mgr := config.NewManager(cfgPath)
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get()

	hold := 3 * time.Second
	flick := 500 * time.Millisecond
	if wiringShort {
		hold = 100 * time.Millisecond
		flick = 50 * time.Millisecond
	}

	chip, err := hal.Open(cfg.GPIOChip)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %d: %w", cfg.GPIOChip, err)
	}
	defer func() {
		// All outputs off before releasing the chip.
		for _, sig := range cfg.Signals {
			_ = chip.Write(sig.RedPin, false)
			_ = chip.Write(sig.GreenPin, false)
		}
		_ = chip.Close()
	}()

	driver := core.NewDriver(chip)
	fmt.Println("Claiming GPIO pins...")
	for _, sig := range cfg.Signals {
		if err := driver.Claim(sig); err != nil {
			return err
		}
		fmt.Printf("  %s: RED=GPIO%d, GREEN=GPIO%d\n", sig.ID, sig.RedPin, sig.GreenPin)
	}

	fmt.Println("Testing RED lights...")
	for _, sig := range cfg.Signals {
		fmt.Printf("  %s RED ON\n", sig.ID)
		if err := driver.SetLight(sig, core.Red); err != nil {
			return err
		}
		time.Sleep(hold)
		if err := chip.Write(sig.RedPin, false); err != nil {
			return err
		}
	}

	fmt.Println("Testing GREEN lights...")
	for _, sig := range cfg.Signals {
		fmt.Printf("  %s GREEN ON\n", sig.ID)
		if err := driver.SetLight(sig, core.Green); err != nil {
			return err
		}
		time.Sleep(hold)
		if err := chip.Write(sig.GreenPin, false); err != nil {
			return err
		}
	}

	fmt.Println("Testing rapid switching (5 cycles)...")
	for i := 0; i < 5; i++ {
		fmt.Printf("  Cycle %d: RED\n", i+1)
		for _, sig := range cfg.Signals {
			if err := driver.SetLight(sig, core.Red); err != nil {
				return err
			}
		}
		time.Sleep(flick)

		fmt.Printf("  Cycle %d: GREEN\n", i+1)
		for _, sig := range cfg.Signals {
			if err := driver.SetLight(sig, core.Green); err != nil {
				return err
			}
		}
		time.Sleep(flick)
	}

	fmt.Println("Turning all lights off...")
	fmt.Println("Test complete.  If the lights changed as described, the wiring is good;")
	fmt.Println("otherwise check the pin numbers in the configuration, the LED polarity")
	fmt.Println("and the power supply.")
	return nil
}

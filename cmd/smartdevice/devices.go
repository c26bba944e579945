package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartdevice/internal/ui"
)

// Devices command flags
var (
	forgetAll bool
	forgetYes bool
)

func init() {
	devicesForgetCmd.Flags().BoolVar(&forgetAll, "all", false, "Forget every remembered device")
	devicesForgetCmd.Flags().BoolVarP(&forgetYes, "yes", "y", false, "Skip the confirmation prompt for --all")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAliasCmd)
	devicesCmd.AddCommand(devicesForgetCmd)
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage remembered devices",
	Long: `List, name and forget the devices kept in the registry.

Devices are added to the registry by 'smartdevice scan --remember'.
Nicknames are shown next to devices in scan results and the HTTP feed.`,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintRegistry(reg)
		return nil
	},
}

var devicesAliasCmd = &cobra.Command{
	Use:   "alias <address> <nickname>",
	Short: "Give a device a nickname",
	Long: `Give a device a nickname. An empty nickname removes it.

The device does not need to have been seen before.`,
	Example: `  smartdevice devices alias AA:BB:CC:DD:EE:FF "Kitchen sensor"
  smartdevice devices alias AA:BB:CC:DD:EE:FF ""`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg.SetDeviceNickname(args[0], args[1])
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}

		printer := ui.NewPrinter(cmd.OutOrStdout())
		if nickname := reg.Nickname(args[0]); nickname != "" {
			printer.Println(ui.SuccessTitleStyle.Render(fmt.Sprintf("%s %s is now %q", ui.SuccessMarker, args[0], nickname)))
		} else {
			printer.Println(ui.SuccessTitleStyle.Render(fmt.Sprintf("%s Nickname cleared for %s", ui.SuccessMarker, args[0])))
		}
		return nil
	},
}

var devicesForgetCmd = &cobra.Command{
	Use:   "forget <address> | --all",
	Short: "Remove devices from the registry",
	Example: `  smartdevice devices forget AA:BB:CC:DD:EE:FF
  smartdevice devices forget --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		if forgetAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	if forgetAll {
		if len(reg.Devices) == 0 {
			printer.Println(ui.NoteStyle.Render("  Registry is already empty"))
			return nil
		}
		if !forgetYes {
			confirmed := ui.Confirm(os.Stdin, cmd.OutOrStdout(), "Forget all devices",
				[]string{
					fmt.Sprintf("%d remembered device(s) will be removed", len(reg.Devices)),
					"Their nicknames will be lost",
				})
			if !confirmed {
				return nil
			}
		}
		count := len(reg.Devices)
		for _, address := range reg.Addresses() {
			reg.RemoveDevice(address)
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		printer.Println(ui.SuccessTitleStyle.Render(fmt.Sprintf("%s Forgot %d device(s)", ui.SuccessMarker, count)))
		return nil
	}

	if !reg.RemoveDevice(args[0]) {
		return fmt.Errorf("device %s is not in the registry", args[0])
	}
	if err := reg.Save(); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	printer.Println(ui.SuccessTitleStyle.Render(fmt.Sprintf("%s Forgot %s", ui.SuccessMarker, args[0])))
	return nil
}

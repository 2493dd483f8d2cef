package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/fretiq/internal/audio"
	"github.com/verte-zerg/fretiq/internal/prompt"
	"github.com/verte-zerg/fretiq/internal/stats"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio inputs and MIDI outputs",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	devices, err := audio.Devices()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Audio inputs")
	fmt.Fprint(out, formatDevices(devices))

	ports, err := prompt.OutPorts()
	if err != nil {
		// MIDI is optional; a missing backend should not hide the audio list.
		fmt.Fprintf(out, "\nMIDI outputs unavailable: %v\n", err)
		return nil
	}
	fmt.Fprintln(out, "\nMIDI outputs")
	if len(ports) == 0 {
		fmt.Fprintln(out, "  (none)")
		return nil
	}
	for _, port := range ports {
		fmt.Fprintf(out, "  %s\n", port)
	}
	return nil
}

func formatDevices(devices []audio.Device) string {
	if len(devices) == 0 {
		return "  (none)\n"
	}
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			d.Name,
			d.HostAPI,
			fmt.Sprintf("%d", d.MaxInputChannels),
			fmt.Sprintf("%.0f", d.DefaultSampleRate),
		})
	}
	lines := stats.FormatTable([]string{"", "Name", "Host API", "Channels", "Rate"}, rows, map[int]bool{3: true, 4: true})
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ssargent/midiwire/pkg/packet"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <timestamp:hexdata>...",
	Short: "Build an encoded packet list",
	Long: `Build a packet list from timestamp:data pairs and write the encoded bytes.

Timestamps accept decimal or 0x-prefixed hex. Data is hex, spaces allowed
inside quotes.

Examples:
  midiwire encode 0:90407f 480:804000 -o note.bin
  midiwire encode --alignment 4 --byte-order little "0:90 40 7f" > note.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		layout, err := resolveLayout(cmd)
		if err != nil {
			return err
		}

		buf, err := encodePackets(layout, args)
		if err != nil {
			return err
		}

		if output == "" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		cmd.Printf("Wrote %d packets (%s, %v) to %s\n", buf.Len(), humanize.Bytes(uint64(buf.Size())), layout, output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	addLayoutFlags(encodeCmd)
}

// encodePackets builds a list from timestamp:hexdata arguments
func encodePackets(layout packet.Layout, args []string) (*packet.PacketBuffer, error) {
	buf := packet.NewPacketBuffer(layout)
	for _, arg := range args {
		ts, data, err := parsePacketArg(arg)
		if err != nil {
			return nil, err
		}
		buf.WithData(ts, data)
	}
	return buf, nil
}

func parsePacketArg(arg string) (packet.Timestamp, []byte, error) {
	tsPart, dataPart, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, nil, fmt.Errorf("invalid packet %q: want timestamp:hexdata", arg)
	}

	ts, err := strconv.ParseUint(strings.TrimSpace(tsPart), 0, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid timestamp in %q: %w", arg, err)
	}

	data, err := hex.DecodeString(strings.ReplaceAll(dataPart, " ", ""))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid data in %q: %w", arg, err)
	}
	if len(data) >= packet.MaxPacketDataLength {
		return 0, nil, fmt.Errorf("packet %q has %d data bytes, the limit is %d", arg, len(data), packet.MaxPacketDataLength-1)
	}
	return ts, data, nil
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ssargent/midiwire/pkg/packet"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Print an encoded packet list",
	Long: `Read an encoded packet list from a file (or stdin) and print its packets.

Examples:
  midiwire decode note.bin
  midiwire encode 0:f8 | midiwire decode --go`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goSyntax, _ := cmd.Flags().GetBool("go")

		layout, err := resolveLayout(cmd)
		if err != nil {
			return err
		}

		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		list, err := packet.ParsePacketList(data, layout)
		if err != nil {
			return fmt.Errorf("failed to decode packet list: %w", err)
		}
		printList(cmd.OutOrStdout(), list, goSyntax)
		if extra := len(data) - list.Size(); extra > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "(%d trailing bytes ignored)\n", extra)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Bool("go", false, "Print the Go-syntax representation")
	addLayoutFlags(decodeCmd)
}

// readInput reads the file named by args[0], or stdin when it is absent or "-"
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

func printList(w io.Writer, list packet.PacketList, goSyntax bool) {
	if goSyntax {
		fmt.Fprintf(w, "%#v\n", list)
	} else {
		fmt.Fprintln(w, list.String())
	}
	fmt.Fprintf(w, "%d packets, %s (%v)\n", list.Length(), humanize.Bytes(uint64(list.Size())), list.Layout())
}

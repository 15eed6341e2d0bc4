package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/storage"
)

// clipCmd represents the clip command
var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Manage stored clips",
	Long: `Save, inspect and delete packet lists kept in the clip store under the
data directory.`,
}

var clipSaveCmd = &cobra.Command{
	Use:   "save <name> [file]",
	Short: "Save an encoded packet list as a clip",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[1:])
		if err != nil {
			return err
		}

		return withClipStore(cmd, func(clips *storage.ClipStore) error {
			list, err := packet.ParsePacketList(data, clips.Layout())
			if err != nil {
				return fmt.Errorf("failed to decode packet list: %w", err)
			}
			id, err := clips.SaveClip(args[0], list)
			if err != nil {
				return err
			}
			cmd.Printf("Saved clip %s (%d packets, %s)\n", id, list.Length(), humanize.Bytes(uint64(list.Size())))
			return nil
		})
	},
}

var clipGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a clip, or write its bytes with -o",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid clip id %q: %w", args[0], err)
		}

		return withClipStore(cmd, func(clips *storage.ClipStore) error {
			clip, err := clips.Clip(id)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, clip.List.Bytes(), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				cmd.Printf("Wrote clip %s to %s\n", clip.ID, output)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q created %s\n", clip.ID, clip.Name, humanize.Time(clip.Created))
			printList(cmd.OutOrStdout(), clip.List, false)
			return nil
		})
	},
}

var clipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClipStore(cmd, func(clips *storage.ClipStore) error {
			infos, err := clips.ListClips()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPACKETS\tSIZE\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					info.ID, info.Name, info.Packets, humanize.Bytes(uint64(info.Size)), humanize.Time(info.Created))
			}
			return tw.Flush()
		})
	},
}

var clipDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid clip id %q: %w", args[0], err)
		}

		return withClipStore(cmd, func(clips *storage.ClipStore) error {
			if err := clips.DeleteClip(id); err != nil {
				return err
			}
			cmd.Printf("Deleted clip %s\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(clipCmd)
	clipCmd.AddCommand(clipSaveCmd, clipGetCmd, clipListCmd, clipDeleteCmd)
	clipGetCmd.Flags().StringP("output", "o", "", "Write the encoded list to a file")
}

// withClipStore opens the configured clip store for the duration of fn
func withClipStore(cmd *cobra.Command, fn func(*storage.ClipStore) error) error {
	container, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	clips, err := container.ClipStore()
	if err != nil {
		return err
	}
	return fn(clips)
}

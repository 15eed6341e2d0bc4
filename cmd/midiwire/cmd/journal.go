package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ssargent/midiwire/pkg/di"
	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/store"
	"github.com/ssargent/midiwire/pkg/transport"
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the capture journal written by serve --record",
}

var journalDumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Print every frame in a journal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, path, err := journalPath(cmd, args)
		if err != nil {
			return err
		}

		reader, err := store.NewJournalReader(store.JournalReaderConfig{FilePath: path})
		if err != nil {
			return err
		}
		defer reader.Close()

		out := cmd.OutOrStdout()
		it := reader.Iterator()
		defer it.Close()
		frames := 0
		for it.Next() {
			frame := it.Frame()
			list, err := frame.PacketList(container.Layout())
			if err != nil {
				return fmt.Errorf("frame at offset %d: %w", it.Offset(), err)
			}
			fmt.Fprintf(out, "@%d %s %s\n", it.Offset(), frame.CapturedAt().Format(time.RFC3339Nano), frame.Endpoint)
			fmt.Fprintln(out, list.String())
			frames++
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("journal stopped at offset %d: %w", it.Offset(), err)
		}
		fmt.Fprintf(out, "%d frames\n", frames)
		return nil
	},
}

var journalRecoverCmd = &cobra.Command{
	Use:   "recover [file]",
	Short: "Truncate a journal after its last intact frame",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := journalPath(cmd, args)
		if err != nil {
			return err
		}

		result, err := store.Recover(path)
		if err != nil {
			return err
		}
		cmd.Printf("Validated %d frames in %v\n", result.FramesValidated, result.RecoveryTime)
		if result.FramesTruncated > 0 {
			cmd.Printf("Truncated %s -> %s\n",
				humanize.Bytes(uint64(result.FileSizeBefore)), humanize.Bytes(uint64(result.FileSizeAfter)))
		}
		return nil
	},
}

var journalReplayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay a journal through a loopback router and print what arrives",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pace, _ := cmd.Flags().GetBool("pace")

		container, path, err := journalPath(cmd, args)
		if err != nil {
			return err
		}

		reader, err := store.NewJournalReader(store.JournalReaderConfig{FilePath: path})
		if err != nil {
			return err
		}
		defer reader.Close()

		return replayJournal(cmd.Context(), cmd.OutOrStdout(), reader, container.Layout(), pace)
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalDumpCmd, journalRecoverCmd, journalReplayCmd)
	journalReplayCmd.Flags().Bool("pace", false, "Wait between lists as long as the capture did")
}

func journalPath(cmd *cobra.Command, args []string) (*di.Container, string, error) {
	container, err := newContainer(cmd)
	if err != nil {
		return nil, "", err
	}
	if len(args) == 1 {
		return container, args[0], nil
	}
	return container, container.JournalPath(), nil
}

// replayJournal sends every frame to a single loopback endpoint and prints
// each delivered list
func replayJournal(ctx context.Context, out io.Writer, reader *store.JournalReader, layout packet.Layout, pace bool) error {
	const endpoint = "replay"

	router, err := transport.NewRouter(transport.Config{Layout: layout})
	if err != nil {
		return err
	}
	defer router.Close()
	if err := router.CreateDestination(endpoint); err != nil {
		return err
	}

	delivered := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	if err := router.Subscribe(endpoint, func(_ string, list packet.PacketList) {
		fmt.Fprintln(out, list.String())
		select {
		case delivered <- struct{}{}:
		case <-stop:
		}
	}); err != nil {
		return err
	}

	type replayResult struct {
		sent int
		err  error
	}
	finished := make(chan replayResult, 1)
	go func() {
		sent, err := store.Replay(ctx, reader, router, store.ReplayOptions{
			Layout:   layout,
			Endpoint: endpoint,
			Pace:     pace,
		})
		finished <- replayResult{sent, err}
	}()

	// Wait until every sent list has been printed
	received := 0
	var result *replayResult
	for result == nil || (result.err == nil && received < result.sent) {
		select {
		case <-delivered:
			received++
		case r := <-finished:
			result = &r
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if result.err != nil {
		return result.err
	}

	fmt.Fprintf(out, "replayed %d lists\n", received)
	return nil
}

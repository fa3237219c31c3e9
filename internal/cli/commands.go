package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/firetrans/internal/batch"
	"codeberg.org/snonux/firetrans/internal/session"
	"codeberg.org/snonux/firetrans/internal/store"
)

const timeFormat = "2006-01-02 15:04"

func newTranslateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [words...]",
		Short: "Translate words and save them to the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := slices.Clone(args)
			if flags.BatchFile != "" {
				batchWords, err := batch.ReadBatchFile(flags.BatchFile)
				if err != nil {
					return err
				}
				words = append(words, batchWords...)
			}
			if len(words) == 0 {
				return fmt.Errorf("nothing to translate: pass words or --batch")
			}
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), flags, words)
		},
	}

	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Translate words from file (one per line)")
	return cmd
}

func newHistoryCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved translations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
}

func newWatchCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the translation list every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), flags)
		},
	}
}

func newClearCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
}

func runTranslate(ctx context.Context, out io.Writer, flags *Flags, words []string) error {
	s, st, err := NewSession(ctx, flags)
	if err != nil {
		return err
	}
	defer st.Close()

	summary := batch.Run(ctx, s, words, func(word string, view session.View) {
		switch view.State {
		case session.StateSaved:
			fmt.Fprintf(out, "%s -> %s\n", word, view.Translation)
		case session.StateSaveFailed:
			fmt.Fprintf(out, "%s -> %s (%s)\n", word, view.Translation, view.Message)
		default:
			fmt.Fprintf(out, "%s: %s\n", word, view.Message)
		}
	})

	if len(words) > 1 {
		fmt.Fprintf(out, "\n=== Translation Summary ===\n")
		fmt.Fprintf(out, "Total words: %d\n", summary.Total)
		fmt.Fprintf(out, "Saved: %d\n", summary.Saved)
		if summary.SaveFailed > 0 {
			fmt.Fprintf(out, "Not saved: %d\n", summary.SaveFailed)
		}
		if summary.Failed > 0 {
			fmt.Fprintf(out, "Failed: %d\n", summary.Failed)
		}
		fmt.Fprintf(out, "===========================\n")
	}

	if failed := summary.Failed + summary.SaveFailed; failed > 0 {
		return fmt.Errorf("%d of %d translations failed", failed, summary.Total)
	}
	return nil
}

func runHistory(ctx context.Context, out io.Writer, flags *Flags) error {
	st, err := OpenStore(ctx, flags)
	if err != nil {
		return err
	}
	defer st.Close()

	first := make(chan []store.Record, 1)
	sub, err := st.Subscribe(ctx, func(records []store.Record) {
		select {
		case first <- records:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	select {
	case records := <-first:
		session.SortRecords(records)
		printRecords(out, records)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runWatch(ctx context.Context, out io.Writer, flags *Flags) error {
	s, st, err := NewSession(ctx, flags)
	if err != nil {
		return err
	}
	defer st.Close()

	updates := make(chan []store.Record, 16)
	s.OnChange(func(view session.View) {
		select {
		case updates <- view.Records:
		case <-ctx.Done():
		}
	})
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	for {
		select {
		case records := <-updates:
			fmt.Fprintf(out, "--- %d translations ---\n", len(records))
			printRecords(out, records)
		case <-ctx.Done():
			return nil
		}
	}
}

func runClear(ctx context.Context, out io.Writer, flags *Flags) error {
	s, st, err := NewSession(ctx, flags)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := s.ClearAll(ctx); err != nil {
		fmt.Fprintln(out, s.Message())
		return err
	}

	fmt.Fprintln(out, "Cleared all translations.")
	return nil
}

func printRecords(out io.Writer, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No saved translations yet.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s  %s -> %s\n", r.Timestamp.Local().Format(timeFormat), r.OriginalText, r.TranslatedText)
	}
}

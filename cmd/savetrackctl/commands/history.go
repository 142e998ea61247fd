package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"savetrack/internal/core"
	"savetrack/internal/history"
)

func exportCmd(opts *rootOptions) *cobra.Command {
	var session, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's history",
	}
	cmd.PersistentFlags().StringVar(&session, "session", "", "session id")
	cmd.PersistentFlags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkPersistentFlagRequired("session")

	run := func(write func(io.Writer, []core.Entry) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, repo, err := opts.service()
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := svc.History(cmd.Context(), session)
			if err != nil {
				return err
			}

			if out == "" {
				return write(cmd.OutOrStdout(), entries)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeAndClose(f, entries, write); err != nil {
				return fmt.Errorf("export to %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", plural(len(entries), "entry", "entries"), out)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "csv", Short: "Export as CSV", RunE: run(history.WriteEntries)},
		&cobra.Command{Use: "xlsx", Short: "Export as an Excel workbook", RunE: run(history.WriteXLSX)},
	)
	return cmd
}

// writeAndClose reports a failed Close, which is where buffered file writes surface.
func writeAndClose(wc io.WriteCloser, entries []core.Entry, write func(io.Writer, []core.Entry) error) (err error) {
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()
	return write(wc, entries)
}

func importCmd(opts *rootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a history CSV into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			uploaded, err := history.ReadEntries(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			svc, repo, err := opts.service()
			if err != nil {
				return err
			}
			defer repo.Close()

			res, err := svc.MergeHistory(cmd.Context(), session, uploaded)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into session %s: %s kept, %s added\n",
				plural(res.Uploaded, "row", "rows"), session,
				humanize.Comma(int64(res.Kept)), humanize.Comma(int64(res.Added)))
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}

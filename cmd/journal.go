package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadchange/core/journal"
	"github.com/kilianp07/loadchange/pkg/export"
)

var journalFlags struct {
	kind   string
	since  string
	until  string
	format string
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Dump the operator journal",
	RunE:  dumpJournal,
}

func init() {
	f := journalCmd.Flags()
	f.StringVar(&journalFlags.kind, "kind", "", "only entries of this kind (enter, append, freeze, hold, reset, alarm)")
	f.StringVar(&journalFlags.since, "since", "", "RFC3339 lower bound")
	f.StringVar(&journalFlags.until, "until", "", "RFC3339 upper bound")
	f.StringVar(&journalFlags.format, "format", "json", "output format, json or csv")
	rootCmd.AddCommand(journalCmd)
}

func dumpJournal(cmd *cobra.Command, args []string) error {
	q, err := journalQuery(journalFlags.kind, journalFlags.since, journalFlags.until)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(journalFlags.format)
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = store.Close() }()
	entries, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	return writeEntries(cmd.OutOrStdout(), format, entries)
}

func journalQuery(kind, since, until string) (journal.Query, error) {
	q := journal.Query{Kind: journal.Kind(kind)}
	var err error
	if since != "" {
		if q.Start, err = time.Parse(time.RFC3339, since); err != nil {
			return q, fmt.Errorf("since: %w", err)
		}
	}
	if until != "" {
		if q.End, err = time.Parse(time.RFC3339, until); err != nil {
			return q, fmt.Errorf("until: %w", err)
		}
	}
	return q, nil
}

// writeEntries renders entries as a JSON array or as CSV rows with the
// fields JSON encoded in the last column.
func writeEntries(w io.Writer, f export.Format, entries []journal.Entry) error {
	switch f {
	case export.FormatJSON:
		if entries == nil {
			entries = []journal.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case export.FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"timestamp", "kind", "fields"}); err != nil {
			return err
		}
		for _, e := range entries {
			fields, err := json.Marshal(e.Fields)
			if err != nil {
				return err
			}
			if err := cw.Write([]string{e.Timestamp.Format(time.RFC3339), string(e.Kind), string(fields)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("journal cannot be written as %s", f)
	}
}

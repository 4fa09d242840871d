package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
)

const timestampLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printCollections(w io.Writer, collections []notebook.Collection) error {
	if len(collections) == 0 {
		_, err := fmt.Fprintln(w, "no collections")
		return err
	}
	table := newTable(w)
	fmt.Fprintln(table, "ID\tTITLE\tSUBJECT\tENTRIES\tUPDATED")
	for _, collection := range collections {
		fmt.Fprintf(table, "%s\t%s\t%s\t%d\t%s\n",
			collection.ID, collection.Title, collection.Subject, collection.EntryCount, formatTime(collection.UpdatedAt))
	}
	return table.Flush()
}

func printEntries(w io.Writer, entries []notebook.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no entries")
		return err
	}
	table := newTable(w)
	fmt.Fprintln(table, "#\tID\tTITLE\tLANGUAGE\tATTACHMENTS\tUPDATED")
	for _, entry := range entries {
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%d\t%s\n",
			entry.Ordinal, entry.ID, entry.Title, entry.Language, len(entry.Attachments), formatTime(entry.UpdatedAt))
	}
	return table.Flush()
}

func printAssets(w io.Writer, stored []assets.Asset) error {
	if len(stored) == 0 {
		_, err := fmt.Fprintln(w, "no assets")
		return err
	}
	table := newTable(w)
	fmt.Fprintln(table, "ID\tSIZE\tCREATED")
	for _, asset := range stored {
		fmt.Fprintf(table, "%s\t%d\t%s\n", asset.ID, len(asset.Data), formatTime(asset.CreatedAt))
	}
	return table.Flush()
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format(timestampLayout)
}

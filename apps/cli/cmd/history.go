package cmd

import (
	"fmt"
	"strconv"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/db"
	"github.com/abdul-hamid-achik/quartz/packages/history"
	"github.com/abdul-hamid-achik/quartz/packages/output"
	"github.com/spf13/cobra"
)

// historyFlags are shared by history and last.
type historyFlags struct {
	fields     []string
	format     string
	dateFormat string
}

func (f *historyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil, "Print only this field, e.g. response.status or response.json.data.id (repeatable)")
	cmd.Flags().StringVarP(&f.format, "output", "o", getEnvString("QUARTZ_OUTPUT", "text"), "Output format: text, json, yaml (env: QUARTZ_OUTPUT)")
	cmd.Flags().StringVar(&f.dateFormat, "date-format", "", `strftime layout for times (default: history.date_format, "%Y-%m-%d %H:%M:%S")`)
}

func (f *historyFlags) writer(cmd *cobra.Command, failed *int) (*output.HistoryWriter, error) {
	format, err := output.ParseFormat(f.format)
	if err != nil {
		return nil, err
	}
	layout := f.dateFormat
	if layout == "" {
		layout = session.Config.History.DateFormat
	}
	warn := output.NewConsole(output.WithWriter(cmd.ErrOrStderr()))
	opts := []output.HistoryOption{
		output.WithDateFormat(layout),
		output.WithFieldErrors(func(field string, err error) {
			*failed++
			warn.PrintWarning(err.Error())
		}),
	}
	if len(f.fields) > 0 {
		opts = append(opts, output.WithFields(f.fields...))
	}
	return output.NewHistoryWriter(cmd.OutOrStdout(), format, opts...), nil
}

// render writes entries and reports fields that could not be projected once
// everything else has been written.
func (f *historyFlags) render(cmd *cobra.Command, entries func(write func(*history.Entry) error) error) error {
	failed := 0
	w, err := f.writer(cmd, &failed)
	if err != nil {
		return err
	}
	if err := entries(w.Write); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return errdef.New(errdef.ErrNotFound, "%d field(s) could not be printed", failed)
	}
	return nil
}

var (
	historyOpts  historyFlags
	historyLimit int
	historyDB    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show sent requests, newest first",
	Long: `Show sent requests, newest first.

Fields:
  id, handle, time, timestamp, duration, hops
  request.method, request.url, request.headers, request.headers.<name>,
  request.body, request.context, request.context.<var>, request.raw
  response.status, response.status_text, response.headers,
  response.headers.<name>, response.body, response.size, response.raw,
  response.json.<path>

Examples:
  quartz history -n 10
  quartz history -f request.url -f response.status
  quartz history -o json
  quartz history export --db sqlite://history.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyOpts.render(cmd, func(write func(*history.Entry) error) error {
			n := 0
			for entry, err := range session.History.Iterate() {
				if err != nil {
					return err
				}
				if historyLimit > 0 && n >= historyLimit {
					break
				}
				if err := write(entry); err != nil {
					return err
				}
				n++
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <timestamp>",
	Short: "Show one entry by its timestamp key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errdef.Wrap(errdef.ErrMalformedInput, err, "invalid timestamp %q", args[0])
		}
		entry, err := session.History.Get(key)
		if err != nil {
			return err
		}
		return historyOpts.render(cmd, func(write func(*history.Entry) error) error {
			return write(entry)
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history log to a SQLite database",
	Long: `Export the history log into the history table of a SQLite database. Entries
already exported are updated in place, so exporting twice is safe.

Examples:
  quartz history export --db sqlite://history.db
  quartz history export --db ./history.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDB == "" {
			historyDB = getEnvString("QUARTZ_HISTORY_DB", "")
		}
		if historyDB == "" {
			return errdef.New(errdef.ErrMalformedInput, "--db is required")
		}
		client, err := db.NewClient(historyDB)
		if err != nil {
			return err
		}
		defer client.Close()

		n, err := client.ExportHistory(cmd.Context(), session.History.Iterate())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", n, historyDB)
		return nil
	},
}

var lastOpts historyFlags

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the most recent request",
	Long: `Show the most recent request. With --field, print only the given fields.

Examples:
  quartz last
  quartz last -f response.body
  quartz last -f response.json.token`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := session.History.Last()
		if err != nil {
			return err
		}
		return lastOpts.render(cmd, func(write func(*history.Entry) error) error {
			return write(entry)
		})
	},
}

func init() {
	historyOpts.register(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many entries (0 for all)")
	historyOpts.register(historyShowCmd)
	historyExportCmd.Flags().StringVar(&historyDB, "db", "", "Database to export to, e.g. sqlite://history.db (env: QUARTZ_HISTORY_DB)")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)

	lastOpts.register(lastCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/spf13/cobra"
)

// pairsTarget loads and saves the key/value set a pairs command edits.
type pairsTarget struct {
	noun string
	sep  string
	load func(cmd *cobra.Command) (*endpoint.Pairs, func() error, error)
}

// newPairsCmd builds the get/set/rm/ls group shared by endpoint headers,
// endpoint query params and scope headers.
func newPairsCmd(use, short string, target pairsTarget) *cobra.Command {
	group := &cobra.Command{
		Use:   use,
		Short: short,
	}

	group.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a " + target.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _, err := target.load(cmd)
			if err != nil {
				return err
			}
			value, ok := pairs.Get(args[0])
			if !ok {
				return errdef.New(errdef.ErrNotFound, "no %s named %s", target.noun, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   fmt.Sprintf(`set "<key>%s<value>"...`, strings.TrimSpace(target.sep)),
		Short: "Add or replace " + target.noun + "s",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, save, err := target.load(cmd)
			if err != nil {
				return err
			}
			for _, line := range args {
				if err := pairs.SetLine(line); err != nil {
					return err
				}
			}
			return save()
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove " + target.noun + "s",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, save, err := target.load(cmd)
			if err != nil {
				return err
			}
			var missing []string
			for _, key := range args {
				if pairs.Delete(key) {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s: %s\n", target.noun, key)
				} else {
					missing = append(missing, key)
				}
			}
			if err := save(); err != nil {
				return err
			}
			if len(missing) > 0 {
				return errdef.New(errdef.ErrNotFound, "no such %s: %s", target.noun, strings.Join(missing, ", "))
			}
			return nil
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List " + target.noun + "s",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _, err := target.load(cmd)
			if err != nil {
				return err
			}
			console(cmd).PrintPairs(*pairs, target.sep)
			return nil
		},
	})

	return group
}

// endpointPairs edits the headers or query of the endpoint given by the
// group's --handle flag, or the current one.
func endpointPairs(handleFlag *string, pick func(*endpoint.Endpoint) *endpoint.Pairs) func(*cobra.Command) (*endpoint.Pairs, func() error, error) {
	return func(cmd *cobra.Command) (*endpoint.Pairs, func() error, error) {
		var args []string
		if *handleFlag != "" {
			args = []string{*handleFlag}
		}
		h, err := currentHandle(args, 0)
		if err != nil {
			return nil, nil, err
		}
		e, err := session.Endpoints.Load(h)
		if err != nil {
			return nil, nil, err
		}
		save := func() error {
			if err := e.Validate(); err != nil {
				return err
			}
			return session.Endpoints.Update(h, e)
		}
		return pick(e), save, nil
	}
}

var (
	headerHandle string
	queryHandle  string
)

var headerCmd = newPairsCmd("header", "Manage the headers of an endpoint", pairsTarget{
	noun: "header",
	sep:  ": ",
	load: endpointPairs(&headerHandle, func(e *endpoint.Endpoint) *endpoint.Pairs { return &e.Headers }),
})

var queryCmd = newPairsCmd("query", "Manage the query params of an endpoint", pairsTarget{
	noun: "query param",
	sep:  "=",
	load: endpointPairs(&queryHandle, func(e *endpoint.Endpoint) *endpoint.Pairs { return &e.Query }),
})

func init() {
	headerCmd.PersistentFlags().StringVar(&headerHandle, "handle", "", "Endpoint to edit (default: the current one)")
	queryCmd.PersistentFlags().StringVar(&queryHandle, "handle", "", "Endpoint to edit (default: the current one)")

	queryCmd.AddCommand(&cobra.Command{
		Use:   "string",
		Short: "Print the query string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _, err := endpointPairs(&queryHandle, func(e *endpoint.Endpoint) *endpoint.Pairs { return &e.Query })(cmd)
			if err != nil {
				return err
			}
			e := endpoint.New()
			e.Query = *pairs
			fmt.Fprintln(cmd.OutOrStdout(), e.QueryString())
			return nil
		},
	})
}

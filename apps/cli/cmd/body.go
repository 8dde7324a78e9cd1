package cmd

import (
	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/spf13/cobra"
)

var (
	bodyHandle string
	bodyFile   string
)

var bodyCmd = &cobra.Command{
	Use:   "body",
	Short: "Manage the body of an endpoint",
	Long: `Manage the raw body of an endpoint. Bodies are not inherited: each endpoint
keeps its own.

Examples:
  quartz body get
  quartz body set '{"name":"{{USER}}"}'
  quartz body set --file payload.json
  cat payload.json | quartz body set --file -
  quartz body rm`,
}

var bodyGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the body",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := bodyTarget()
		if err != nil {
			return err
		}
		body, err := session.Endpoints.Body(h)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	},
}

var bodySetCmd = &cobra.Command{
	Use:   "set [content]",
	Short: "Replace the body",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := bodyTarget()
		if err != nil {
			return err
		}
		var body []byte
		switch {
		case len(args) == 1 && bodyFile != "":
			return errdef.New(errdef.ErrMalformedInput, "pass either content or --file, not both")
		case len(args) == 1:
			body = []byte(args[0])
		case bodyFile != "":
			if body, err = readInput(cmd, bodyFile); err != nil {
				return err
			}
		default:
			return errdef.New(errdef.ErrMalformedInput, "nothing to set; pass content or --file")
		}
		return session.Endpoints.SetBody(h, body)
	},
}

var bodyRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove the body",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := bodyTarget()
		if err != nil {
			return err
		}
		return session.Endpoints.SetBody(h, nil)
	},
}

func bodyTarget() (endpoint.Handle, error) {
	var args []string
	if bodyHandle != "" {
		args = []string{bodyHandle}
	}
	return currentHandle(args, 0)
}

func init() {
	bodyCmd.PersistentFlags().StringVar(&bodyHandle, "handle", "", "Endpoint to edit (default: the current one)")
	bodySetCmd.Flags().StringVarP(&bodyFile, "file", "f", "", `Read the body from a file ("-" for stdin)`)

	bodyCmd.AddCommand(bodyGetCmd)
	bodyCmd.AddCommand(bodySetCmd)
	bodyCmd.AddCommand(bodyRmCmd)
}

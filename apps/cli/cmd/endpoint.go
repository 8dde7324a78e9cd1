package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/core/runner"
	"github.com/spf13/cobra"
)

// patchFlags are the endpoint edit flags shared by create, edit and send.
type patchFlags struct {
	url           string
	method        string
	headers       []string
	removeHeaders []string
	query         []string
	removeQuery   []string
	data          string
	dataFile      string
}

func (p *patchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.url, "url", "", "Endpoint URL")
	cmd.Flags().StringVarP(&p.method, "method", "X", "", "HTTP method")
	cmd.Flags().StringArrayVarP(&p.headers, "header", "H", nil, `Header in "key: value" format (repeatable)`)
	cmd.Flags().StringArrayVar(&p.removeHeaders, "remove-header", nil, "Header key to remove (repeatable)")
	cmd.Flags().StringArrayVarP(&p.query, "query", "q", nil, `Query param in "key=value" format (repeatable)`)
	cmd.Flags().StringArrayVar(&p.removeQuery, "remove-query", nil, "Query param key to remove (repeatable)")
	cmd.Flags().StringVarP(&p.data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&p.dataFile, "data-file", "", `Read the request body from a file ("-" for stdin)`)
}

// build turns the flags that were set on cmd into a patch.
func (p *patchFlags) build(cmd *cobra.Command) (*endpoint.Patch, error) {
	patch := &endpoint.Patch{
		Headers:      p.headers,
		RemoveHeader: p.removeHeaders,
		Query:        p.query,
		RemoveQuery:  p.removeQuery,
	}
	if cmd.Flags().Changed("url") {
		patch.URL = &p.url
	}
	if cmd.Flags().Changed("method") {
		patch.Method = &p.method
	}
	if cmd.Flags().Changed("data") && cmd.Flags().Changed("data-file") {
		return nil, errdef.New(errdef.ErrMalformedInput, "--data and --data-file are mutually exclusive")
	}
	if cmd.Flags().Changed("data") {
		patch.Body = []byte(p.data)
	}
	if cmd.Flags().Changed("data-file") {
		body, err := readInput(cmd, p.dataFile)
		if err != nil {
			return nil, err
		}
		patch.Body = body
	}
	return patch, nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "cannot read %s", path)
	}
	return data, nil
}

// handleArg parses args[i] when present; otherwise it returns the root handle,
// which commands resolve to the current selection.
func handleArg(args []string, i int) (endpoint.Handle, error) {
	if len(args) <= i {
		return endpoint.Handle{}, nil
	}
	return endpoint.ParseHandle(args[i])
}

// currentHandle resolves an optional handle argument against the selection.
func currentHandle(args []string, i int) (endpoint.Handle, error) {
	h, err := handleArg(args, i)
	if err != nil {
		return endpoint.Handle{}, err
	}
	return session.RequireHandle(h)
}

var (
	createPatch patchFlags
	createUse   bool
)

var createCmd = &cobra.Command{
	Use:   "create <handle>",
	Short: "Create an endpoint",
	Long: `Create an endpoint at a handle, a slash separated path such as
"api/users/get". Missing parents are created as plain namespaces.

Examples:
  quartz create api --url 'https://{{HOST}}/api' -H 'Accept: application/json'
  quartz create api/users -X GET --url 'https://{{HOST}}/api/users' --use
  quartz create api/users/create -X POST -d '{"name":"quartz"}'`,
	Args: cobra.ExactArgs(1),
	RunE: createCommand,
}

func init() {
	createPatch.register(createCmd)
	createCmd.Flags().BoolVar(&createUse, "use", false, "Select the endpoint after creating it")
}

func createCommand(cmd *cobra.Command, args []string) error {
	h, err := endpoint.ParseHandle(args[0])
	if err != nil {
		return err
	}
	patch, err := createPatch.build(cmd)
	if err != nil {
		return err
	}

	e := endpoint.New()
	if err := patch.Apply(e); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := session.Endpoints.Write(h, e); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created endpoint %s\n", h)

	if createUse {
		if err := session.UseHandle(h); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", h)
	}
	return nil
}

var useCmd = &cobra.Command{
	Use:   "use [handle]",
	Short: "Select the endpoint other commands act on",
	Long: `Select the endpoint other commands act on. Without a handle, prints the
current selection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			h, err := session.RequireHandle(endpoint.Handle{})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		}
		h, err := endpoint.ParseHandle(args[0])
		if err != nil {
			return err
		}
		if h.IsRoot() || !session.Endpoints.Exists(h) {
			return errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
		}
		if err := session.UseHandle(h); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", h)
		return nil
	},
}

var (
	lsDepth int
	lsFlat  bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [handle]",
	Short: "List endpoints as a tree",
	Long: `List endpoints below a handle as a tree. --flat prints one full handle per
line instead, with a trailing "/" on namespace nodes that hold no endpoint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := handleArg(args, 0)
		if err != nil {
			return err
		}
		if lsFlat {
			for node, err := range session.Endpoints.Children(h, lsDepth) {
				if err != nil {
					return err
				}
				name := node.Handle.String()
				if !node.IsEndpoint {
					name += "/"
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}
		tree, err := session.Endpoints.Tree(h, lsDepth)
		if err != nil {
			return err
		}
		console(cmd).PrintTree(tree)
		return nil
	},
}

func init() {
	lsCmd.Flags().IntVarP(&lsDepth, "depth", "L", -1, "Descend at most this many levels (-1 for no limit)")
	lsCmd.Flags().BoolVar(&lsFlat, "flat", false, "Print full handles, one per line")
}

var rmCmd = &cobra.Command{
	Use:   "rm <handle>...",
	Short: "Remove endpoints and everything below them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			h, err := endpoint.ParseHandle(arg)
			if err != nil {
				return err
			}
			if err := session.Endpoints.Remove(h); err != nil {
				return err
			}
			if err := session.ForgetHandle(h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted endpoint %s\n", h)
		}
		return nil
	},
}

var (
	showRaw  bool
	showURL  bool
	showVars []string
)

var showCmd = &cobra.Command{
	Use:   "show [handle]",
	Short: "Show an endpoint as it would be sent",
	Long: `Show the effective endpoint: inherited from its parents, with the active
context and environment applied. --raw shows only what is stored at the handle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := currentHandle(args, 0)
		if err != nil {
			return err
		}

		var e *endpoint.Endpoint
		if showRaw {
			if e, err = session.Endpoints.Load(h); err != nil {
				return err
			}
		} else {
			if _, e, _, err = runner.NewRunner(session).Resolve(runner.Options{Handle: h, Overrides: showVars}); err != nil {
				return err
			}
		}

		if showURL {
			if showRaw || e.Query.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), e.URL)
				return nil
			}
			u, err := e.FullURL()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		}
		console(cmd).PrintEndpoint(h, e)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Show only the values stored at the handle")
	showCmd.Flags().BoolVar(&showURL, "url", false, "Print only the URL")
	showCmd.Flags().StringArrayVarP(&showVars, "var", "v", nil, `Variable override in "KEY=VALUE" format (repeatable)`)
}

var editPatch patchFlags

var editCmd = &cobra.Command{
	Use:   "edit [handle]",
	Short: "Change the values stored at an endpoint",
	Long: `Change the values stored at an endpoint. Only the given flags are applied;
everything else is left as it is.

Examples:
  quartz edit --url 'https://{{HOST}}/v2/users'
  quartz edit api -H 'Authorization: Bearer {{TOKEN}}' --remove-header x-debug
  quartz edit api/users/create --data-file payload.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: editCommand,
}

func init() {
	editPatch.register(editCmd)
}

func editCommand(cmd *cobra.Command, args []string) error {
	h, err := currentHandle(args, 0)
	if err != nil {
		return err
	}
	patch, err := editPatch.build(cmd)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errdef.New(errdef.ErrMalformedInput, "nothing to change; pass at least one of --url, -X, -H, -q, -d")
	}

	e, err := session.Endpoints.Load(h)
	if err != nil {
		return err
	}
	if err := patch.Apply(e); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := session.Endpoints.Update(h, e); err != nil {
		return err
	}
	if patch.Body != nil {
		if err := session.Endpoints.SetBody(h, patch.Body); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated endpoint %s\n", h)
	return nil
}

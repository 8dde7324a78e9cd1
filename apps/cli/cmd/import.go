package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/import/curl"
	"github.com/spf13/cobra"
)

var (
	importFileFlag      string
	importPrefixFlag    string
	importHandleFlag    string
	importUseFlag       bool
	importKeepQueryFlag bool
	importForceFlag     bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import endpoints from other formats",
}

var importCurlCmd = &cobra.Command{
	Use:   "curl [command]",
	Short: "Import endpoints from curl commands",
	Long: `Import endpoints from curl commands. The handle is derived from the URL path
unless --handle is given. Query strings become query params unless
--keep-query is set.

A file passed with --file may hold several commands, one per line, with
backslash line continuations and # comments.

Examples:
  quartz import curl 'curl -X POST https://api.example.com/users -d name=alice'
  quartz import curl --file requests.sh --prefix imported
  pbpaste | quartz import curl -`,
	Args: cobra.ArbitraryArgs,
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importFileFlag, "file", "f", "", "Read curl commands from a file")
	importCurlCmd.Flags().StringVar(&importPrefixFlag, "prefix", "", "Create endpoints under this handle")
	importCurlCmd.Flags().StringVar(&importHandleFlag, "handle", "", "Handle for the endpoint (single command only)")
	importCurlCmd.Flags().BoolVar(&importUseFlag, "use", false, "Select the last imported endpoint")
	importCurlCmd.Flags().BoolVar(&importKeepQueryFlag, "keep-query", false, "Keep the query string in the URL")
	importCurlCmd.Flags().BoolVar(&importForceFlag, "force", false, "Overwrite existing endpoints")

	importCmd.AddCommand(importCurlCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	opts := []curl.Option{curl.WithSplitQuery(!importKeepQueryFlag)}
	if importPrefixFlag != "" {
		prefix, err := endpoint.ParseHandle(importPrefixFlag)
		if err != nil {
			return err
		}
		opts = append(opts, curl.WithPrefix(prefix))
	}
	converter := curl.NewConverter(opts...)

	var imports []*curl.Import
	switch {
	case importFileFlag != "" && len(args) > 0:
		return errdef.New(errdef.ErrMalformedInput, "pass either a command or --file, not both")
	case importFileFlag != "":
		var err error
		if imports, err = converter.ConvertFile(importFileFlag); err != nil {
			return err
		}
	case len(args) == 1 && args[0] == "-":
		data, err := readInput(cmd, "-")
		if err != nil {
			return err
		}
		imp, err := converter.ConvertCommand(string(data))
		if err != nil {
			return err
		}
		imports = append(imports, imp)
	case len(args) > 0:
		imp, err := converter.ConvertCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}
		imports = append(imports, imp)
	default:
		return errdef.New(errdef.ErrMalformedInput, "nothing to import; pass a curl command or --file")
	}

	if importHandleFlag != "" {
		if len(imports) != 1 {
			return errdef.New(errdef.ErrMalformedInput, "--handle needs exactly one command, got %d", len(imports))
		}
		h, err := endpoint.ParseHandle(importHandleFlag)
		if err != nil {
			return err
		}
		imports[0].Handle = h
	}

	var last endpoint.Handle
	for _, imp := range imports {
		if err := writeImport(imp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s %s %s\n", imp.Handle, imp.Endpoint.EffectiveMethod(), imp.Endpoint.URL)
		last = imp.Handle
	}

	if importUseFlag && !last.IsRoot() {
		if err := session.UseHandle(last); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", last)
	}
	return nil
}

func writeImport(imp *curl.Import) error {
	if !importForceFlag || !session.Endpoints.IsEndpoint(imp.Handle) {
		return session.Endpoints.Write(imp.Handle, imp.Endpoint)
	}
	if err := session.Endpoints.Update(imp.Handle, imp.Endpoint); err != nil {
		return err
	}
	return session.Endpoints.SetBody(imp.Handle, imp.Endpoint.Body)
}

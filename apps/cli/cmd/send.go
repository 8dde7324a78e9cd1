package cmd

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/runner"
	"github.com/abdul-hamid-achik/quartz/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	sendPatch     patchFlags
	sendVars      []string
	sendNoFollow  bool
	sendCookies   []string
	sendCookieJar string
	sendInclude   bool
	sendWatch     bool
)

var sendCmd = &cobra.Command{
	Use:   "send [handle]",
	Short: "Send an endpoint",
	Long: `Resolve an endpoint against the active context and environment and send
it. The response body is written to stdout and the exchange is added to the
history log. Cookies set by the server are kept in the environment's jar.

Edit flags (--url, -X, -H, -q, -d) change only this request and are not saved.

Examples:
  quartz send
  quartz send api/users -v HOST=localhost:8080
  quartz send -b session=abc -c ./cookies.txt
  quartz send --no-follow -i
  quartz send --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: sendCommand,
}

func init() {
	sendPatch.register(sendCmd)
	sendCmd.Flags().StringArrayVarP(&sendVars, "var", "v", nil, `Variable override in "KEY=VALUE" format (repeatable)`)
	sendCmd.Flags().BoolVar(&sendNoFollow, "no-follow", false, "Do not follow redirects")
	sendCmd.Flags().StringArrayVarP(&sendCookies, "cookie", "b", nil, `Cookie as "name=value" or a cookie jar file to send (repeatable)`)
	sendCmd.Flags().StringVarP(&sendCookieJar, "cookie-jar", "c", "", "Write cookies to this file instead of the environment jar")
	sendCmd.Flags().BoolVarP(&sendInclude, "include", "i", false, "Print the status line and response headers before the body")
	sendCmd.Flags().BoolVarP(&sendWatch, "watch", "w", false, "Watch the endpoint and active scopes and re-send on change")
}

func sendCommand(cmd *cobra.Command, args []string) error {
	h, err := currentHandle(args, 0)
	if err != nil {
		return err
	}
	patch, err := sendPatch.build(cmd)
	if err != nil {
		return err
	}
	opts := runner.Options{
		Handle:        h,
		Overrides:     sendVars,
		Patch:         patch,
		NoFollow:      sendNoFollow,
		Cookies:       sendCookies,
		CookieJarPath: sendCookieJar,
	}

	if err := sendOnce(cmd, opts); err != nil && !sendWatch {
		return err
	} else if err != nil {
		console(cmd).PrintError(err)
	}
	if !sendWatch {
		return nil
	}
	return watchAndSend(cmd, opts)
}

func sendOnce(cmd *cobra.Command, opts runner.Options) error {
	var body bytes.Buffer
	opts.Output = &body

	result, err := runner.NewRunner(session).Send(cmd.Context(), opts)
	if err != nil {
		return err
	}
	for _, name := range slices.Compact(slices.Sorted(slices.Values(result.Unresolved))) {
		session.Logger.Warn("variable not defined in any scope; sent as written", "name", name)
	}

	out := cmd.OutOrStdout()
	if sendInclude {
		resp := result.Exchange.Response
		fmt.Fprintf(out, "%s %s\n", resp.Proto, output.Status(resp.StatusCode, resp.StatusText()))
		for _, name := range slices.Sorted(maps.Keys(resp.Headers)) {
			for _, v := range resp.Headers[name] {
				fmt.Fprintf(out, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(out)
	}
	_, err = out.Write(body.Bytes())
	return err
}

// watchPaths lists the directories whose changes affect the request: every
// node from the root down to h, plus the active context and environment.
func watchPaths(h endpoint.Handle) []string {
	paths := []string{session.Endpoints.Root()}
	for _, node := range h.Ancestors() {
		paths = append(paths, session.Endpoints.Dir(node))
	}
	current := session.Current()
	for _, dir := range []string{session.Contexts.Dir(current.Context), session.Envs.Dir(current.Env)} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			paths = append(paths, dir)
		}
	}
	return paths
}

func watchAndSend(cmd *cobra.Command, opts runner.Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	h, err := session.RequireHandle(opts.Handle)
	if err != nil {
		return err
	}
	for _, dir := range watchPaths(h) {
		if err := watcher.Add(dir); err != nil {
			console(cmd).PrintError(fmt.Errorf("failed to watch %s: %w", dir, err))
		}
	}

	// The jar is rewritten by every send; ignoring it avoids a send loop.
	jar := opts.CookieJarPath
	if jar == "" {
		jar = session.ActiveCookieJarPath()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", h)

	ctx := cmd.Context()

	// Debounce timer for rapid file changes
	var debounce *time.Timer
	fire := make(chan string, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			if filepath.Clean(event.Name) == filepath.Clean(jar) || filepath.Base(event.Name)[0] == '.' {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case fire <- name:
				default:
				}
			})

		case name := <-fire:
			fmt.Fprintf(cmd.ErrOrStderr(), "\nChanged: %s\nRe-sending %s...\n\n", name, h)
			if err := sendOnce(cmd, opts); err != nil {
				console(cmd).PrintError(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			console(cmd).PrintError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/fatih/color"
)

// Console writes human readable, optionally colored output.
type Console struct {
	writer  io.Writer
	noColor bool
}

type ConsoleOption func(*Console)

func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.noColor {
		color.NoColor = true
	}
	return c
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.writer = w
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = nc
	}
}

// Writer is the destination of the console.
func (c *Console) Writer() io.Writer {
	return c.writer
}

var methodColors = map[string]color.Attribute{
	"GET":     color.FgGreen,
	"POST":    color.FgYellow,
	"PUT":     color.FgBlue,
	"PATCH":   color.FgCyan,
	"DELETE":  color.FgRed,
	"HEAD":    color.FgMagenta,
	"OPTIONS": color.FgMagenta,
}

// Method colors an HTTP method by verb.
func Method(m string) string {
	attr, ok := methodColors[strings.ToUpper(m)]
	if !ok {
		attr = color.FgWhite
	}
	return color.New(attr, color.Bold).Sprint(m)
}

// Status colors a status line by class: 2xx green, 3xx cyan, 4xx yellow,
// 5xx red.
func Status(code int, text string) string {
	line := fmt.Sprintf("%d %s", code, text)
	switch {
	case code >= 500:
		return color.New(color.FgRed).Sprint(line)
	case code >= 400:
		return color.New(color.FgYellow).Sprint(line)
	case code >= 300:
		return color.New(color.FgCyan).Sprint(line)
	case code >= 200:
		return color.New(color.FgGreen).Sprint(line)
	}
	return line
}

// PrintTree renders node and its children. The root node itself is only
// printed when it is an endpoint.
func (c *Console) PrintTree(node *endpoint.TreeNode) {
	if !node.Handle.IsRoot() {
		c.printNode(node, node.Handle.String())
	}
	c.printChildren(node.Children, "")
}

func (c *Console) printChildren(children []*endpoint.TreeNode, prefix string) {
	for i, child := range children {
		last := i == len(children)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		c.printNode(child, prefix+branch+child.Handle.Name())
		c.printChildren(child.Children, prefix+indent)
	}
}

func (c *Console) printNode(node *endpoint.TreeNode, label string) {
	if !node.IsEndpoint {
		fmt.Fprintln(c.writer, label)
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(c.writer, "%s", bold(label))
	if node.Method != "" {
		fmt.Fprintf(c.writer, " %s", Method(node.Method))
	}
	if node.URL != "" {
		fmt.Fprintf(c.writer, " %s", faint(node.URL))
	}
	fmt.Fprintln(c.writer)
}

// PrintPairs writes one "key<sep>value" line per entry.
func (c *Console) PrintPairs(pairs endpoint.Pairs, sep string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	for key, value := range pairs.All() {
		fmt.Fprintf(c.writer, "%s%s%s\n", cyan(key), sep, value)
	}
}

// PrintVariables writes "KEY=VALUE" lines in the order of keys.
func (c *Console) PrintVariables(keys []string, lookup func(string) string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, k := range keys {
		fmt.Fprintf(c.writer, "%s=%s\n", cyan(k), lookup(k))
	}
}

// PrintNames lists names, marking the active one.
func (c *Console) PrintNames(names []string, active string) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	for _, name := range names {
		if name == active {
			fmt.Fprintf(c.writer, "%s %s\n", green("*"), green(name))
			continue
		}
		fmt.Fprintf(c.writer, "  %s\n", name)
	}
}

// PrintEndpoint shows an effective endpoint.
func (c *Console) PrintEndpoint(h endpoint.Handle, e *endpoint.Endpoint) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(c.writer, "%s\n", bold(h.String()))
	fmt.Fprintf(c.writer, "%s %s\n", Method(e.EffectiveMethod()), e.URL)
	if e.Query.Len() > 0 {
		fmt.Fprintf(c.writer, "\n%s\n", bold("Query"))
		c.PrintPairs(e.Query, "=")
	}
	if e.Headers.Len() > 0 {
		fmt.Fprintf(c.writer, "\n%s\n", bold("Headers"))
		c.PrintPairs(e.Headers, ": ")
	}
	if len(e.Body) > 0 {
		fmt.Fprintf(c.writer, "\n%s\n%s\n", bold("Body"), e.Body)
	}
}

func (c *Console) PrintError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(c.writer, "%s %v\n", red("Error:"), err)
}

func (c *Console) PrintWarning(msg string) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(c.writer, "%s %s\n", yellow("Warning:"), msg)
}

func (c *Console) PrintHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(c.writer, "%s %s\n", bold("quartz"), version)
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/cookie"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cookieJarFlag    string
	cookieDomainFlag string
	cookiePathFlag   string
	cookieSecure     bool
	cookieHTTPOnly   bool
	cookieMaxAge     time.Duration
)

var cookieCmd = &cobra.Command{
	Use:   "cookie",
	Short: "Manage the cookie jar",
	Long: `Manage the cookie jar of the active environment, or of the file given with
--jar. Jars use the Netscape cookies.txt format understood by curl.

Examples:
  quartz cookie ls
  quartz cookie set session=abc --domain api.example.com
  quartz cookie get session
  quartz cookie rm session --domain api.example.com
  quartz cookie clear`,
}

func jarPath() string {
	if cookieJarFlag != "" {
		return cookieJarFlag
	}
	return session.ActiveCookieJarPath()
}

var cookieLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cookies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jar, err := cookie.Read(jarPath())
		if err != nil {
			return err
		}
		faint := color.New(color.Faint).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		now := time.Now()
		for c := range jar.All() {
			if cookieDomainFlag != "" && !c.Matches(cookieDomainFlag) {
				continue
			}
			line := fmt.Sprintf("%s\t%s=%s", faint(c.Domain), cyan(c.Name), c.Value)
			if c.Expired(now) {
				line += faint("\t(expired)")
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var cookieGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a cookie value",
	Long:  "Print a cookie value. Without --domain the first cookie with that name is used.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jar, err := cookie.Read(jarPath())
		if err != nil {
			return err
		}
		for c := range jar.All() {
			if c.Name != args[0] {
				continue
			}
			if cookieDomainFlag != "" && !c.Matches(cookieDomainFlag) {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Value)
			return nil
		}
		return errdef.New(errdef.ErrNotFound, "no cookie named %s", args[0])
	},
}

var cookieSetCmd = &cobra.Command{
	Use:   "set <name=value>...",
	Short: "Add or replace cookies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cookieDomainFlag == "" {
			return errdef.New(errdef.ErrMalformedInput, "--domain is required")
		}
		path := jarPath()
		jar, err := cookie.Read(path)
		if err != nil {
			return err
		}
		for _, arg := range args {
			name, value, found := strings.Cut(arg, "=")
			name = strings.TrimSpace(name)
			if !found || name == "" {
				return errdef.New(errdef.ErrMalformedInput, "expected \"name=value\", got %q", arg)
			}
			c := cookie.Cookie{
				Domain:   cookieDomainFlag,
				Name:     name,
				Value:    value,
				Path:     cookiePathFlag,
				Secure:   cookieSecure,
				HTTPOnly: cookieHTTPOnly,
			}
			if cookieMaxAge > 0 {
				c.Expires = time.Now().Add(cookieMaxAge).Truncate(time.Second)
			}
			if err := c.Validate(); err != nil {
				return err
			}
			jar.Set(c)
		}
		return jar.Write(path)
	},
}

var cookieRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Remove cookies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cookieDomainFlag == "" {
			return errdef.New(errdef.ErrMalformedInput, "--domain is required")
		}
		path := jarPath()
		jar, err := cookie.Read(path)
		if err != nil {
			return err
		}
		for _, name := range args {
			if !jar.Delete(cookieDomainFlag, name) {
				return errdef.New(errdef.ErrNotFound, "no cookie named %s for %s", name, cookieDomainFlag)
			}
		}
		return jar.Write(path)
	},
}

var cookieClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cookie.NewJar().Write(jarPath())
	},
}

func init() {
	cookieCmd.PersistentFlags().StringVar(&cookieJarFlag, "jar", "", "Cookie jar file (default: the active environment's jar)")
	cookieCmd.PersistentFlags().StringVar(&cookieDomainFlag, "domain", "", "Cookie domain")
	cookieSetCmd.Flags().StringVar(&cookiePathFlag, "path", "/", "Cookie path")
	cookieSetCmd.Flags().BoolVar(&cookieSecure, "secure", false, "Mark the cookie secure")
	cookieSetCmd.Flags().BoolVar(&cookieHTTPOnly, "http-only", false, "Mark the cookie HTTP only")
	cookieSetCmd.Flags().DurationVar(&cookieMaxAge, "max-age", 0, "Expire the cookie after this long (default: session cookie)")

	cookieCmd.AddCommand(cookieLsCmd)
	cookieCmd.AddCommand(cookieGetCmd)
	cookieCmd.AddCommand(cookieSetCmd)
	cookieCmd.AddCommand(cookieRmCmd)
	cookieCmd.AddCommand(cookieClearCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abdul-hamid-achik/quartz/packages/core/config"
	"github.com/abdul-hamid-achik/quartz/packages/core/workspace"
	"github.com/abdul-hamid-achik/quartz/packages/logging"
	"github.com/abdul-hamid-achik/quartz/packages/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	dirFlag      string
	logLevelFlag string
	noColorFlag  bool
)

// session is opened before every command that needs a workspace.
var session *workspace.Session

// skipWorkspace marks commands that run without an open workspace.
const skipWorkspace = "skip-workspace"

var rootCmd = &cobra.Command{
	Use:   "quartz",
	Short: "API client made into a CLI tool",
	Long: `quartz keeps HTTP endpoints as a tree of plain files inside a .quartz
directory. Endpoints inherit URL, method, headers and query params from their
parents, take {{VARIABLES}} from the active context and environment, and every
request sent is kept in a history log.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: openSession,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		output.NewConsole(output.WithWriter(os.Stderr)).PrintError(err)
		os.Exit(ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", getEnvString("QUARTZ_DIR", ""), "Workspace directory (default: nearest .quartz above the working directory) (env: QUARTZ_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("QUARTZ_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: QUARTZ_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("NO_COLOR", false), "Disable colored output (env: NO_COLOR)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(headerCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(bodyCmd)
	rootCmd.AddCommand(varCmd)
	rootCmd.AddCommand(ctxCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(cookieCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(importCmd)
}

func openSession(cmd *cobra.Command, args []string) error {
	color.NoColor = color.NoColor || noColorFlag
	logger := logging.Setup(logging.Config{Level: logLevelFlag, Pretty: true, Writer: cmd.ErrOrStderr()})
	session = nil

	if cmd.Annotations[skipWorkspace] == "true" {
		return nil
	}

	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if logLevelFlag == "" && cfg.Log.Level != "" {
		logger = logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.GetLogPretty(), Writer: cmd.ErrOrStderr()})
	}
	if !cfg.GetColors() {
		color.NoColor = true
	}

	session, err = workspace.Open(root, workspace.WithConfig(cfg), workspace.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Debug("opened workspace", "root", root, "handle", session.Current().Handle.String(),
		"context", session.Current().Context, "env", session.Current().Env)
	return nil
}

// workspaceRoot resolves --dir: a path to a .quartz directory, or to a
// directory containing one. Without it the working directory is searched
// upwards.
func workspaceRoot() (string, error) {
	if dirFlag == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cannot determine working directory: %w", err)
		}
		return workspace.Find(cwd)
	}
	if filepath.Base(filepath.Clean(dirFlag)) == workspace.DirName {
		return filepath.Abs(dirFlag)
	}
	return workspace.Find(dirFlag)
}

func console(cmd *cobra.Command) *output.Console {
	return output.NewConsole(output.WithWriter(cmd.OutOrStdout()))
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/spf13/cobra"
)

// scopeKind binds a command group to contexts or environments of the session.
type scopeKind struct {
	kind   env.Kind
	store  func() *env.Store
	active func() string
	use    func(name string) error
}

var contextKind = scopeKind{
	kind:   env.KindContext,
	store:  func() *env.Store { return session.Contexts },
	active: func() string { return session.Current().Context },
	use:    func(name string) error { return session.UseContext(name) },
}

var environmentKind = scopeKind{
	kind:   env.KindEnvironment,
	store:  func() *env.Store { return session.Envs },
	active: func() string { return session.Current().Env },
	use:    func(name string) error { return session.UseEnv(name) },
}

var ctxCmd = newScopeCmd("ctx", "Manage contexts", contextKind)

var envCmd = newScopeCmd("env", "Manage environments", environmentKind)

func newScopeCmd(use, short string, sk scopeKind) *cobra.Command {
	noun := sk.kind.String()
	group := &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf(`Manage %ss. A %s is a named set of variables and headers; the
active one is applied to every request. Environment variables are applied
first and context variables override them.`, noun, noun),
	}

	group.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sk.store().Create(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", noun, args[0])
			return nil
		},
	})

	var createMissing bool
	switchCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Switch to a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if createMissing && name != env.DefaultName && !sk.store().Exists(name) {
				if _, err := sk.store().Create(name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", noun, name)
			}
			if err := sk.use(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s %s\n", name, noun)
			return nil
		},
	}
	switchCmd.Flags().BoolVar(&createMissing, "create", false, "Create the "+noun+" when it does not exist")
	group.AddCommand(switchCmd)

	group.AddCommand(&cobra.Command{
		Use:   "which",
		Short: "Print the active " + noun,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), sk.active())
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List " + noun + "s",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := sk.store().List()
			if err != nil {
				return err
			}
			console(cmd).PrintNames(names, sk.active())
			return nil
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a " + noun,
		Long:  "Delete a " + noun + ". Deleting the active one switches back to " + env.DefaultName + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := sk.store().Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", noun, name)
			if sk.active() == name {
				return sk.use(env.DefaultName)
			}
			return nil
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "cp <src> <dest>",
		Short: "Copy variables from one " + noun + " into another",
		Long:  "Copy variables from one " + noun + " into another, creating it when missing. Variables only in dest are kept.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sk.store().Copy(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %s %s to %s\n", noun, args[0], args[1])
			return nil
		},
	})

	group.AddCommand(newPairsCmd("header", "Manage headers sent with every request of the active "+noun, pairsTarget{
		noun: "header",
		sep:  ": ",
		load: func(cmd *cobra.Command) (*endpoint.Pairs, func() error, error) {
			scope, err := sk.store().Load(sk.active())
			if err != nil {
				return nil, nil, err
			}
			save := func() error {
				for key, value := range scope.Headers.All() {
					if err := validateHeader(key, value); err != nil {
						return err
					}
				}
				return sk.store().Save(scope)
			}
			return &scope.Headers, save, nil
		},
	}))

	return group
}

func validateHeader(key, value string) error {
	e := endpoint.New()
	e.Headers.Set(key, value)
	return e.Validate()
}

var (
	varContext bool
	varScope   string
)

var varCmd = &cobra.Command{
	Use:   "var",
	Short: "Manage variables of the active environment",
	Long: `Manage the {{VARIABLES}} substituted into URLs, headers, query params and
bodies. Commands act on the active environment, or on the active context with
--context. --scope selects a scope by name instead of the active one.

Examples:
  quartz var set HOST=localhost:8080 TOKEN=secret
  quartz var --context set USER=alice
  quartz var import .env
  quartz var ls`,
}

// varTarget loads the scope var commands act on.
func varTarget() (*env.Store, *env.Scope, error) {
	sk := environmentKind
	if varContext {
		sk = contextKind
	}
	name := sk.active()
	if varScope != "" {
		name = varScope
	}
	scope, err := sk.store().Load(name)
	if err != nil {
		return nil, nil, err
	}
	return sk.store(), scope, nil
}

var varGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, scope, err := varTarget()
		if err != nil {
			return err
		}
		value, ok := scope.Variables[args[0]]
		if !ok {
			return errdef.New(errdef.ErrNotFound, "no variable named %s in %s %s", args[0], scope.Kind, scope.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var varSetCmd = &cobra.Command{
	Use:   "set <KEY=VALUE>...",
	Short: "Set variables",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, scope, err := varTarget()
		if err != nil {
			return err
		}
		for _, line := range args {
			if err := scope.SetLine(line); err != nil {
				return err
			}
		}
		return store.Save(scope)
	},
}

var varRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove variables",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, scope, err := varTarget()
		if err != nil {
			return err
		}
		for _, key := range args {
			if _, ok := scope.Variables[key]; !ok {
				return errdef.New(errdef.ErrNotFound, "no variable named %s in %s %s", key, scope.Kind, scope.Name)
			}
			delete(scope.Variables, key)
		}
		return store.Save(scope)
	},
}

var varLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, scope, err := varTarget()
		if err != nil {
			return err
		}
		console(cmd).PrintVariables(scope.Keys(), func(k string) string { return scope.Variables[k] })
		return nil
	},
}

var varImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import variables from a .env file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, scope, err := varTarget()
		if err != nil {
			return err
		}
		n, err := env.ImportDotEnv(scope, args[0])
		if err != nil {
			return err
		}
		if err := store.Save(scope); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d variables into %s %s\n", n, scope.Kind, scope.Name)
		return nil
	},
}

func init() {
	varCmd.PersistentFlags().BoolVar(&varContext, "context", false, "Act on the active context instead of the environment")
	varCmd.PersistentFlags().StringVar(&varScope, "scope", "", "Act on this scope instead of the active one")

	varCmd.AddCommand(varGetCmd)
	varCmd.AddCommand(varSetCmd)
	varCmd.AddCommand(varRmCmd)
	varCmd.AddCommand(varLsCmd)
	varCmd.AddCommand(varImportCmd)
}

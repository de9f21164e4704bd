// Package cli implements the docpager command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager/internal/app"
	"github.com/Alp4ka/docpager/internal/config"
)

var BuildVersion = "dev"

// runtime is shared by the commands of one invocation.
type runtime struct {
	cfg    config.Config
	lookup func(string) (string, bool)
	app    *app.App
}

func Execute(ctx context.Context) error {
	rootCmd, rt := newRootCommand(os.LookupEnv)
	err := rootCmd.ExecuteContext(ctx)

	return errors.Join(err, rt.close())
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	return rt.app.Close()
}

func newRootCommand(lookup func(string) (string, bool)) (*cobra.Command, *runtime) {
	rt := &runtime{lookup: lookup}
	rt.cfg.LoadDefaults()

	rootCmd := &cobra.Command{
		Use:          "docpager",
		Short:        "docpager CLI",
		Long:         "CLI for paginated user queries and token sessions backed by a document store.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ApplyEnv(cmd.Root().PersistentFlags(), rt.lookup); err != nil {
				return err
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), rt.cfg, app.NewLogger(cmd.ErrOrStderr(), rt.cfg.LogLevel, rt.cfg.LogFormat))
			if err != nil {
				return err
			}
			rt.app = a

			return nil
		},
	}
	rt.cfg.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of docpager CLI",
		Args:  cobra.NoArgs,
		// overrides the root hook, no runtime is needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
	rootCmd.AddCommand(newUsersCommand(rt))
	rootCmd.AddCommand(newSessionCommands(rt)...)

	return rootCmd, rt
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newSessionCommands(rt *runtime) []*cobra.Command {
	var password string
	loginCmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in with a password and print the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.app.Auth.LoginWithPassword(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return printJSON(cmd, session)
		},
	}
	loginCmd.Flags().StringVar(&password, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("password")

	refreshCmd := &cobra.Command{
		Use:   "refresh <refresh-token>",
		Short: "Start a new session from a refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := rt.app.Auth.LoginWithRefreshToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, session)
		},
	}

	var all bool
	logoutCmd := &cobra.Command{
		Use:   "logout [user-id]",
		Short: "End the sessions of a user, or of everyone with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && len(args) == 0:
				return rt.app.Auth.LogoutAll(cmd.Context())
			case !all && len(args) == 1:
				return rt.app.Auth.Logout(cmd.Context(), args[0])
			default:
				return errors.New("pass either a user id or --all")
			}
		},
	}
	logoutCmd.Flags().BoolVar(&all, "all", false, "end every session")

	revokeCmd := &cobra.Command{
		Use:   "revoke <refresh-token>",
		Short: "Revoke a single refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revoked, err := rt.app.Auth.RevokeRefreshToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"revoked": revoked})
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := rt.app.Issuer.Verify(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, claims)
		},
	}

	return []*cobra.Command{loginCmd, refreshCmd, logoutCmd, revokeCmd, verifyCmd}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/auth"
)

var _userSortFields = docpager.FieldMapping{
	"email":    "email",
	"name":     "profile.displayName",
	"created":  "creationDate",
	"modified": "modifiedDate",
}

func newUsersCommand(rt *runtime) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var password string
	signUpCmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := rt.app.Auth.SignUp(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
	signUpCmd.Flags().StringVar(&password, "password", "", "account password")
	_ = signUpCmd.MarkFlagRequired("password")

	var (
		query  string
		limit  int
		cursor string
		sort   []string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Search accounts one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := docpager.SearchInput{Q: query, Limit: limit, Cursor: cursor}
			if len(sort) > 0 {
				parsed, err := docpager.ParseSort(sort, _userSortFields)
				if err != nil {
					return err
				}
				in.Sort = parsed
			}

			page, err := rt.app.Auth.Users(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		},
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive search over email and display name")
	listCmd.Flags().IntVar(&limit, "limit", docpager.DefaultLimit, "page size")
	listCmd.Flags().StringVar(&cursor, "cursor", "", "cursor returned by the previous page")
	listCmd.Flags().StringArrayVar(&sort, "sort", nil, `sort clause such as "name desc", repeatable; fields: email, name, created, modified`)

	var byEmail bool
	getCmd := &cobra.Command{
		Use:   "get <id|email>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				user *auth.User
				err  error
			)
			if byEmail {
				user, err = rt.app.Auth.UserByEmail(cmd.Context(), args[0])
			} else {
				user, err = rt.app.Auth.User(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			user.Services = auth.Services{}
			return printJSON(cmd, user)
		},
	}
	getCmd.Flags().BoolVar(&byEmail, "email", false, "look the account up by email")

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an account and end its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.app.Auth.RemoveUser(cmd.Context(), args[0])
		},
	}

	var profile map[string]string
	updateProfileCmd := &cobra.Command{
		Use:   "update-profile <id>",
		Short: "Set profile fields of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make(map[string]any, len(profile))
			for k, v := range profile {
				fields[k] = v
			}
			return rt.app.Auth.UpdateProfile(cmd.Context(), args[0], fields)
		},
	}
	updateProfileCmd.Flags().StringToStringVar(&profile, "set", nil, "profile fields, e.g. --set displayName=Neo")
	_ = updateProfileCmd.MarkFlagRequired("set")

	var seed auth.SeedInput
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin and test accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Auth.SeedUsers(cmd.Context(), seed); err != nil {
				return err
			}
			cmd.Println("Users seeded.")
			return nil
		},
	}
	seedCmd.Flags().BoolVar(&seed.Force, "force", false, "wipe existing accounts and sessions first")
	seedCmd.Flags().IntVar(&seed.UserCount, "count", auth.DefaultSeedUserCount, "number of test accounts")
	seedCmd.Flags().StringVar(&seed.Password, "password", auth.DefaultSeedPassword, "password of the seeded accounts")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all accounts and sessions, requires the admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.app.Auth.Reset(cmd.Context())
		},
	}

	usersCmd.AddCommand(signUpCmd, listCmd, getCmd, removeCmd, updateProfileCmd, seedCmd, resetCmd)

	return usersCmd
}

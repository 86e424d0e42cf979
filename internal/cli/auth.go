package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email, passwordStdin)
			if err != nil {
				return err
			}

			u, err := a.cl.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return a.print(u)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (default $"+envEmail+")")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email, passwordStdin)
			if err != nil {
				return err
			}

			u, err := a.cl.Auth.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return a.print(u)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (default $"+envEmail+")")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cl.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			return a.message("logged out")
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session without calling the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.cl.Auth.Whoami(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(w)
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the current user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.cl.Auth.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(u)
		},
	}
}

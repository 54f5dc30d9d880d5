package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaronwang/auction-client/api-client/internal/service"
	"github.com/aaronwang/auction-client/shared/models"
)

var (
	registerEmail string
	registerRole  string

	whoamiVerify bool

	profileEmail          string
	profileChangePassword bool
)

func accounts() *service.AccountService {
	return service.NewAccountService(client, store, logger)
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and remember the session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := argOrPrompt(args, "Username: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		sess, err := accounts().Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		okColor.Printf("Logged in as %s", sess.User.Username)
		if sess.User.Role != "" {
			fmt.Printf(" (%s)", strings.ToLower(sess.User.Role))
		}
		fmt.Println()
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create an account and log in",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, err := argOrPrompt(args, "Username: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}

		sess, err := accounts().Register(cmd.Context(), &service.Registration{
			Username:        username,
			Password:        password,
			ConfirmPassword: confirm,
			Email:           registerEmail,
			Role:            strings.ToUpper(registerRole),
		})
		if err != nil {
			return err
		}
		okColor.Printf("Registered and logged in as %s\n", sess.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := accounts().Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		user := &sess.User
		if whoamiVerify {
			if user, err = accounts().Verify(cmd.Context()); err != nil {
				return err
			}
		}

		fmt.Println(user.Username)
		if user.Email != "" {
			faintColor.Printf("  email: %s\n", user.Email)
		}
		if user.Role != "" {
			faintColor.Printf("  role:  %s\n", strings.ToLower(user.Role))
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your email and optionally your password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		change := &service.ProfileChange{Email: profileEmail}
		if change.Email == "" {
			change.Email = sess.User.Email
		}
		if profileChangePassword {
			if change.CurrentPassword, err = promptPassword("Current password: "); err != nil {
				return err
			}
			if change.NewPassword, err = promptPassword("New password: "); err != nil {
				return err
			}
			if change.ConfirmPassword, err = promptPassword("Confirm new password: "); err != nil {
				return err
			}
		}

		if err := accounts().UpdateProfile(cmd.Context(), change); err != nil {
			return err
		}
		okColor.Println("Profile updated successfully")
		return nil
	},
}

func argOrPrompt(args []string, label string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return promptLine(label)
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerRole, "role", strings.ToLower(models.RoleBuyer), "buyer or seller")
	_ = registerCmd.MarkFlagRequired("email")

	whoamiCmd.Flags().BoolVar(&whoamiVerify, "verify", false, "check the token with the server")

	profileCmd.Flags().StringVar(&profileEmail, "email", "", "new email (default: current)")
	profileCmd.Flags().BoolVar(&profileChangePassword, "change-password", false, "prompt for a new password")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, profileCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userName string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage login accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user with --email and --password",
	Args:  cobra.NoArgs,
	RunE:  runUserAdd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().StringVarP(&userName, "name", "n", "", "display name")
	_ = userAddCmd.MarkFlagRequired("name")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	email, password := Credentials(flagEmail, flagPassword)
	if email == "" || password == "" {
		return errLoginRequired
	}
	svc, closeDB, err := UserService(state.cfg, state.logger)
	if err != nil {
		return err
	}
	defer closeDB()

	u, err := svc.Register(cmd.Context(), userName, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s <%s>\n", u.Name, u.Email)
	return nil
}

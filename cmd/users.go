package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/server"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

// usersSetRoleCmd grants roles out of band. It is how the first admin is
// created, since the API only lets admins change roles.
var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <email> <none|moderator|admin>",
	Short: "Set the role of a registered user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.StoreDriver == config.StoreDriverMemory {
			return errors.New("set-role needs a persistent store, STORE_DRIVER=memory lives inside the server process")
		}
		logger := newLogger(cfg)
		defer func() { _ = logger.Sync() }()

		repos, err := server.OpenRepositories(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = repos.Close(context.Background()) }()

		return setRole(cmd.Context(), services.NewUserService(repos.Users), args[0], args[1], cmd.OutOrStdout())
	},
}

func setRole(ctx context.Context, users *services.UserService, email, role string, out io.Writer) error {
	if err := users.SetRole(ctx, email, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user %q, register through POST /users first", email)
		}
		return err
	}
	stored, err := users.Role(ctx, email)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s is now %s\n", email, stored)
	return err
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickyhof/easyext/db"
	"github.com/nickyhof/easyext/ps"
)

func authFlags(cmd *cobra.Command) *ps.Auth {
	auth := &ps.Auth{}
	cmd.Flags().StringVar(&auth.Token, "token", "", "Access token for HTTPS remotes")
	cmd.Flags().StringVar(&auth.Username, "user", "", "User name for HTTPS basic auth")
	cmd.Flags().StringVar(&auth.Password, "password", "", "Password for HTTPS basic auth")
	cmd.Flags().StringVar(&auth.KeyPath, "sshKey", "", "SSH private key for SSH remotes")
	cmd.Flags().StringVar(&auth.Passphrase, "passphrase", "", "Passphrase of the SSH key")
	return auth
}

func remoteArg(args []string) string {
	if len(args) == 0 {
		return ps.DefaultRemote
	}
	return args[0]
}

func newRemoteCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage git remotes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME URL",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := g.openPersistence()
			if err != nil {
				return err
			}
			if err := persistence.AddRemote(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Added remote %s", args[0])))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := g.openPersistence()
			if err != nil {
				return err
			}
			remotes, err := persistence.Remotes()
			if err != nil {
				return err
			}

			t := db.NewTable(cmd.OutOrStdout())
			t.Header([]string{"Remote", "URL"})
			for _, r := range remotes {
				for _, url := range r.URLs {
					t.Row([]string{r.Name, url})
				}
			}
			t.Render()
			return nil
		},
	})

	return cmd
}

func newPushCmd(g *globals) *cobra.Command {
	var auth *ps.Auth

	cmd := &cobra.Command{
		Use:   "push [REMOTE]",
		Short: "Push the store's history to a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := g.openPersistence()
			if err != nil {
				return err
			}
			remote := remoteArg(args)
			if err := persistence.Push(remote, auth); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Pushed to %s (%s)", remote, shortID(persistence.LatestTransaction().Id))))
			return nil
		},
	}
	auth = authFlags(cmd)
	return cmd
}

func newPullCmd(g *globals) *cobra.Command {
	var auth *ps.Auth

	cmd := &cobra.Command{
		Use:   "pull [REMOTE]",
		Short: "Fast-forward the store to a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persistence, err := g.openPersistence()
			if err != nil {
				return err
			}
			remote := remoteArg(args)
			if err := persistence.Pull(remote, auth); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Pulled from %s (%s)", remote, shortID(persistence.LatestTransaction().Id))))
			return nil
		},
	}
	auth = authFlags(cmd)
	return cmd
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"taskdeck/internal/auth"
)

type credentialsFlags struct {
	email    string
	password string
	local    bool
}

func (f *credentialsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password (read from stdin when omitted)")
	cmd.Flags().BoolVar(&f.local, "local", false, "use the local database in-process instead of the API")
	cmd.MarkFlagRequired("email")
}

// resolvePassword falls back to the first line of stdin.
func (f *credentialsFlags) resolvePassword(in io.Reader) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func registerCmd() *cobra.Command {
	var f credentialsFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := f.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := clientLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			c, err := openClient(cfg, logger, f.local)
			if err != nil {
				return err
			}
			defer c.close()

			var id auth.Identity
			if c.local != nil {
				id, err = c.local.auth.Register(cmd.Context(), f.email, password)
			} else {
				id, err = c.http.Register(cmd.Context(), f.email, password)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", id.Email, id.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func loginCmd() *cobra.Command {
	var f credentialsFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := f.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := clientLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			c, err := openClient(cfg, logger, f.local)
			if err != nil {
				return err
			}
			defer c.close()

			if err := c.session.Login(cmd.Context(), f.email, password); err != nil {
				return err
			}
			u, _ := c.session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", u.Email)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func logoutCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := clientLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			c, err := openClient(cfg, logger, local)
			if err != nil {
				return err
			}
			defer c.close()

			c.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "forget the in-process session instead")
	return cmd
}

func requireSession(ctx context.Context, c *client) error {
	if err := c.session.Restore(ctx); err != nil {
		return err
	}
	if _, ok := c.session.CurrentUser(); !ok {
		return errors.New("not signed in; run `taskdeck login` first")
	}
	return nil
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dpt/internal/auth"
)

func (c *cli) hashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the gateway's security.accounts list",
		Long: `Hash-password prints an Argon2id hash for a security.accounts entry.

The password is read from the first line of stdin unless --password is
given, so it stays out of shell history:

  echo -n 's3cret' | dptctl hash-password`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			return c.emit(map[string]string{"password_hash": hash}, func() {
				fmt.Fprintln(c.out, hash)
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash (default: read stdin)")
	return cmd
}

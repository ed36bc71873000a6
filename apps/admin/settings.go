package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/certify/core/settings"
)

var errNotWholeNumber = errors.New("value must be a whole number")

func (cli *commandLine) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change the certificate requirements",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usage(cmd)
		},
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the number of lessons required in between",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.options.RequiredMiddleLessons(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s = %d\n", settings.RequiredMiddleLessons, n)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set N",
		Short: "Set the number of lessons required in between",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}
			n, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return errNotWholeNumber
			}
			if err = cli.options.SetRequiredMiddleLessons(cmd.Context(), n); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s = %d\n", settings.RequiredMiddleLessons, n)
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

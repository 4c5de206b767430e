package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/model_layer/internal/database/migrations"
)

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(newMigrateUpCommand(rootOpts))
	cmd.AddCommand(newMigrateDownCommand(rootOpts))
	cmd.AddCommand(newMigrateVersionCommand(rootOpts))
	return cmd
}

func (o *RootOptions) dsn() (string, error) {
	cfg, err := o.load()
	if err != nil {
		return "", err
	}
	if cfg.DBURL == "" {
		return "", errors.New("config: db_url is required")
	}
	return cfg.DBURL, nil
}

func newMigrateUpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := rootOpts.dsn()
			if err != nil {
				return err
			}
			return NewPrinter(cmd.OutOrStdout()).Step("apply migrations", func() error {
				return migrations.Up(dsn)
			})
		},
	}
}

func newMigrateDownCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert every migration, dropping all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("migrate down drops every table; pass --yes to confirm")
			}
			dsn, err := rootOpts.dsn()
			if err != nil {
				return err
			}
			return NewPrinter(cmd.OutOrStdout()).Step("revert migrations", func() error {
				return migrations.Down(dsn)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func newMigrateVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := rootOpts.dsn()
			if err != nil {
				return err
			}
			version, dirty, ok, err := migrations.Version(dsn)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !ok:
				fmt.Fprintln(out, "no migration applied")
			case dirty:
				fmt.Fprintf(out, "%d (dirty)\n", version)
			default:
				fmt.Fprintln(out, version)
			}
			return nil
		},
	}
}

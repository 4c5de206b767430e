package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/model_layer/internal/auth/pwd"
	"github.com/R3E-Network/model_layer/internal/database/migrations"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model"
)

// DemoPassword is the password dev-init gives the demo account.
const DemoPassword = "welcome"

// NewDevInitCommand creates the dev-init command.
func NewDevInitCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "dev-init",
		Short: "Recreate a development database with seed data",
		Long: `Drop and recreate the schema, insert seed rows and set the password of
the demo1 account to "welcome". Never point this at a database you care about.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("dev-init drops every table; pass --yes to confirm")
			}
			return runDevInit(cmd, rootOpts)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func runDevInit(cmd *cobra.Command, rootOpts *RootOptions) error {
	ctx := cmd.Context()
	cfg, err := rootOpts.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := rootOpts.logger(cfg)
	p := NewPrinter(cmd.OutOrStdout())

	hasher, err := pwd.NewHasherFromB64(cfg.PwdKey)
	if err != nil {
		return fmt.Errorf("pwd_key: %w", err)
	}

	if err := p.Step("revert migrations", func() error { return migrations.Down(cfg.DBURL) }); err != nil {
		return err
	}
	if err := p.Step("apply migrations", func() error { return migrations.Up(cfg.DBURL) }); err != nil {
		return err
	}

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	mm := model.NewManager(db, cfg.DBAcquireTimeout)

	if err := p.Step("insert seed rows", func() error { return migrations.Seed(ctx, db.DB) }); err != nil {
		return err
	}
	return p.Step("set demo password", func() error {
		return setDemoPassword(ctx, mm, hasher)
	})
}

func setDemoPassword(ctx context.Context, mm *model.Manager, hasher *pwd.Hasher) error {
	root := identity.Root()
	user, err := model.FirstByUsername[model.User](ctx, root, mm, migrations.DemoUsername)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not seeded", migrations.DemoUsername)
	}
	return model.UserBmc.UpdatePwd(ctx, root, mm, hasher, user.ID, DemoPassword)
}

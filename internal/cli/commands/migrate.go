package commands

import (
	"fmt"

	"github.com/conduit-lang/dataservice/internal/cli/config"
	"github.com/conduit-lang/dataservice/internal/cli/ui"
	"github.com/conduit-lang/dataservice/internal/orm/migrate"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/spf13/cobra"
)

var migrateDryRun bool

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables for every model",
		Long: `Create a table for each model that does not have one yet, in dependency order.
Existing tables are left untouched; columns are never altered or dropped.

Examples:
  dataservice migrate
  dataservice migrate --dry-run`,
		RunE: runMigrate,
	}

	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Print the DDL without executing it")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	schemas, err := loadSchemas(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if migrateDryRun {
		dialect, err := ormquery.DialectFor(cfg.Database.Driver)
		if err != nil {
			return err
		}
		statements, err := migrate.Plan(schemas, dialect)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			fmt.Fprintf(out, "%s;\n\n", stmt)
		}
		return nil
	}

	db, dialect, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := migrate.Sync(cmd.Context(), db, schemas, dialect)
	if err != nil {
		return err
	}

	ui.Success(out, noColor, "applied %d statements for %d models", n, schemas.Count())
	return nil
}

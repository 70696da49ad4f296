package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/dataservice/internal/cli/config"
	"github.com/conduit-lang/dataservice/internal/cli/ui"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models and the routes they are served on",
		RunE:  runModels,
	}
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	schemas, err := loadSchemas(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if schemas.Count() == 0 {
		ui.Warn(out, noColor, "no models defined in %s", cfg.Models.Path)
		return nil
	}

	prefix := strings.TrimSuffix(cfg.API.Prefix, "/")
	table := ui.NewTable(out, noColor, "MODEL", "ROUTE", "KEY", "FIELDS", "ASSOCIATIONS")
	for _, name := range schemas.List() {
		resource, _ := schemas.Get(name)

		var assocs []string
		for _, rel := range resource.OrderedRelationships() {
			assocs = append(assocs, fmt.Sprintf("%s→%s (%s)", rel.FieldName, rel.TargetResource, rel.Type))
		}

		table.AddRow(
			name,
			prefix+"/"+resource.TableName,
			resource.LookupKey(),
			strconv.Itoa(len(resource.Fields)),
			strings.Join(assocs, ", "),
		)
	}
	table.Render()
	return nil
}

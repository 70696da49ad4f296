package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/dataservice/internal/cli/config"
	"github.com/conduit-lang/dataservice/internal/cli/ui"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initYes   bool
	initForce bool
	initDir   string
)

// initAnswers are the choices written to dataservice.yaml
type initAnswers struct {
	Driver  string
	URL     string
	Prefix  string
	Sample  bool
	Sync    bool
	Backend string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Driver:  config.DriverSQLite,
		URL:     defaultURL(config.DriverSQLite),
		Prefix:  "/api",
		Sample:  true,
		Sync:    true,
		Backend: config.CacheNone,
	}
}

func defaultURL(driver string) string {
	if driver == config.DriverPostgres {
		return "postgres://localhost:5432/dataservice?sslmode=disable"
	}
	return "file:dataservice.db?_foreign_keys=on"
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter dataservice.yaml and models.yaml",
		Long: `Ask for the database and API settings and write dataservice.yaml, plus an
example models.yaml with two related models.

Examples:
  dataservice init
  dataservice init --yes --dir ./blog`,
		RunE: runInit,
	}

	cmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write into")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	answers := defaultAnswers()
	if !initYes {
		if err := askInit(&answers); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(initDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", initDir, err)
	}

	out := cmd.OutOrStdout()

	configFile := filepath.Join(initDir, config.FileName+".yaml")
	if err := writeYAML(configFile, configDocument(answers)); err != nil {
		return err
	}
	ui.Success(out, noColor, "wrote %s", configFile)

	if answers.Sample {
		modelsFile := filepath.Join(initDir, "models.yaml")
		if err := writeYAML(modelsFile, sampleModels()); err != nil {
			return err
		}
		ui.Success(out, noColor, "wrote %s", modelsFile)
	}

	fmt.Fprintln(out)
	ui.KeyValues(out, noColor,
		[2]string{"database", answers.Driver},
		[2]string{"api", strings.TrimSuffix(answers.Prefix, "/") + "/"},
		[2]string{"next", "dataservice serve"},
	)
	return nil
}

func askInit(answers *initAnswers) error {
	driverPrompt := &survey.Select{
		Message: "Database driver:",
		Options: []string{config.DriverSQLite, config.DriverPostgres},
		Default: answers.Driver,
	}
	if err := survey.AskOne(driverPrompt, &answers.Driver); err != nil {
		return err
	}

	urlPrompt := &survey.Input{
		Message: "Database URL:",
		Default: defaultURL(answers.Driver),
	}
	if err := survey.AskOne(urlPrompt, &answers.URL, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	prefixPrompt := &survey.Input{
		Message: "API prefix:",
		Default: answers.Prefix,
	}
	if err := survey.AskOne(prefixPrompt, &answers.Prefix, survey.WithValidator(validatePrefix)); err != nil {
		return err
	}

	cachePrompt := &survey.Select{
		Message: "Response cache:",
		Options: []string{config.CacheNone, config.CacheMemory, config.CacheRedis},
		Default: answers.Backend,
	}
	if err := survey.AskOne(cachePrompt, &answers.Backend); err != nil {
		return err
	}

	samplePrompt := &survey.Confirm{
		Message: "Write example models?",
		Default: answers.Sample,
	}
	return survey.AskOne(samplePrompt, &answers.Sample)
}

func validatePrefix(v interface{}) error {
	prefix, _ := v.(string)
	if !strings.HasPrefix(prefix, "/") {
		return errors.New("prefix must start with /")
	}
	if len(prefix) > 1 && strings.HasSuffix(prefix, "/") {
		return errors.New("prefix must not end with /")
	}
	return nil
}

func configDocument(a initAnswers) map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"port": 3000,
		},
		"api": map[string]interface{}{
			"prefix": a.Prefix,
		},
		"database": map[string]interface{}{
			"driver": a.Driver,
			"url":    a.URL,
		},
		"models": map[string]interface{}{
			"path": "models.yaml",
			"sync": a.Sync,
		},
		"cache": map[string]interface{}{
			"backend": a.Backend,
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "console",
		},
	}
}

func sampleModels() schema.Definition {
	return schema.Definition{Models: []schema.ModelDefinition{
		{
			Name: "Author",
			Fields: []schema.FieldDefinition{
				{Name: "id", Type: "int", Primary: true, Auto: true},
				{Name: "name", Type: "string"},
				{Name: "email", Type: "string", Unique: true},
			},
			Associations: []schema.AssociationDefinition{
				{Name: "posts", Type: "has_many", Target: "Post", ForeignKey: "author_id"},
			},
		},
		{
			Name: "Post",
			Fields: []schema.FieldDefinition{
				{Name: "id", Type: "int", Primary: true, Auto: true},
				{Name: "title", Type: "string"},
				{Name: "body", Type: "text", Nullable: true},
				{Name: "author_id", Type: "int"},
			},
			Associations: []schema.AssociationDefinition{
				{Name: "author", Type: "belongs_to", Target: "Author", ForeignKey: "author_id"},
			},
		},
	}}
}

func writeYAML(path string, v interface{}) error {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

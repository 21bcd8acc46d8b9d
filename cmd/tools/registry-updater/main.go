// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"narrative-workers/internal/cli/formatter"
	"narrative-workers/internal/render"
	"narrative-workers/pkg/registry"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	fd := os.Stdout.Fd()
	formatter.SetStyled(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var path string

	root := &cobra.Command{
		Use:           "registry-updater",
		Short:         "Maintain the visual template registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&path, "path", "configs/template-registry.json", "path to the registry file")

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the templates in the registry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listTemplates(cmd.OutOrStdout(), path)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the registry structure, compile every schema and validate the samples",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := validateRegistry(path)
				if err != nil {
					return fmt.Errorf("registry validation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d templates.\n", n)
				return nil
			},
		},
		newAddCmd(&path),
		newUpdateCmd(&path),
	)
	return root
}

func newAddCmd(path *string) *cobra.Command {
	var t registry.Template
	var schemaFile string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a template with its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(schemaFile)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			if err := json.Unmarshal(data, &t.Schema); err != nil {
				return fmt.Errorf("parse schema %s: %w", schemaFile, err)
			}
			if err := addTemplate(*path, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template: %s\n", t.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&t.ID, "id", "", "template id (e.g. trend_line)")
	f.StringVar(&t.DisplayName, "display-name", "", "display name")
	f.StringVar(&t.Description, "description", "", "description")
	f.StringVar(&t.Mode, "mode", registry.ModeData, "output mode (data or story)")
	f.StringVar(&t.Version, "version", "1.0.0", "template version")
	f.StringVar(&t.Status, "status", "planned", "status (planned, in-progress, completed, verified)")
	f.StringVar(&schemaFile, "schema", "", "file holding the payload JSON schema")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newUpdateCmd(path *string) *cobra.Command {
	var id, field, value string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update one field of a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateTemplate(*path, id, field, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated template %s, field %s to %s\n", id, field, value)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "template id to update")
	cmd.Flags().StringVar(&field, "field", "", "field to update (status, version, displayName, description, mode)")
	cmd.Flags().StringVar(&value, "value", "", "new value for the field")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func listTemplates(w io.Writer, path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Templates) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return nil
	}

	rows := make([][]string, 0, len(reg.Templates))
	for _, t := range reg.Templates {
		sample := "-"
		if t.Sample != nil {
			sample = "yes"
		}
		rows = append(rows, []string{t.ID, t.Mode, t.Version, t.Status, sample})
	}
	fmt.Fprint(w, formatter.RenderTable([]string{"ID", "Mode", "Version", "Status", "Sample"}, rows))
	return nil
}

// validateRegistry checks the file structure, compiles every schema and
// validates each sample payload against its own template.
func validateRegistry(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Check(); err != nil {
		return 0, err
	}

	compiled, err := render.NewRegistry(reg.Templates)
	if err != nil {
		return 0, err
	}
	for _, t := range reg.Templates {
		if t.Sample == nil {
			continue
		}
		if _, err := compiled.Validate(t.ID, t.Sample); err != nil {
			return 0, fmt.Errorf("sample: %w", err)
		}
	}
	return len(reg.Templates), nil
}

func addTemplate(path string, t registry.Template) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.TemplateRegistry{Version: "1.0.0"}
	}

	if _, exists := reg.Find(t.ID); exists {
		return fmt.Errorf("template with ID %s already exists", t.ID)
	}
	if t.Tags == nil {
		t.Tags = []string{t.Mode}
	}
	reg.Templates = append(reg.Templates, t)

	// refuse to write a registry that would not load
	if err := reg.Check(); err != nil {
		return err
	}
	if _, err := render.NewRegistry(reg.Templates); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}

func updateTemplate(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	t, ok := reg.Find(id)
	if !ok {
		return fmt.Errorf("template with ID %s not found", id)
	}
	switch field {
	case "status":
		t.Status = value
	case "version":
		t.Version = value
	case "displayName":
		t.DisplayName = value
	case "description":
		t.Description = value
	case "mode":
		t.Mode = value
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	if err := reg.Check(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/aretw0/questline/internal/validator"
	"github.com/aretw0/questline/pkg/adapters/yamlfile"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "tpl"},
	Short:   "Manage stored templates",
}

var templateImportCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import template files or Loam directories into the store",
	Long: `Loads every template under each path and stores it with a fresh id.
Templates with hard validation errors are rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			tpls, err := validator.LoadPath(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, tpl := range tpls {
				res, err := app.Templates.Import(cmd.Context(), tpl)
				if err != nil {
					return fmt.Errorf("%s: %s: %w", path, tpl.Name, err)
				}
				fmt.Fprintf(out, "Imported %q as template %d (%d nodes)\n", res.Template.Name, res.Template.ID, len(res.Template.Nodes))
				if n := len(res.Validation.Unreachable); n > 0 {
					fmt.Fprintf(out, "  warning: %d nodes unreachable from entry\n", n)
				}
			}
		}
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored templates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		tpls, err := app.Templates.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(tpls) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates found.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tNODES\tENTRY\tVALID")
		for _, t := range tpls {
			valid := app.Engine.Validate(t).Valid()
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%t\n", t.ID, t.Name, len(t.Nodes), t.EntryNodeID, valid)
		}
		return tw.Flush()
	},
}

var templateExportCmd = &cobra.Command{
	Use:   "export <template-id>",
	Short: "Write a stored template as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		tpl, err := app.Templates.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return yamlfile.Encode(cmd.OutOrStdout(), tpl, format)
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete <template-id>...",
	Aliases: []string{"rm"},
	Short:   "Remove stored templates",
	Long:    `Removes templates. Sessions started from them remain but can no longer advance.`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, arg := range args {
			id, err := parseID(arg)
			if err != nil {
				return err
			}
			if err := app.Templates.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed template %d\n", id)
		}
		return nil
	},
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateImportCmd, templateListCmd, templateExportCmd, templateDeleteCmd)
	templateExportCmd.Flags().String("format", "yaml", "Output format: yaml or json")
}

package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/questline/internal/presentation/graph"
	"github.com/aretw0/questline/internal/validator"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Export a template as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph TD) for the templates found at path, or for a
stored template with --template. With --session the session's visited and current
nodes are highlighted on its template.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		templateID, _ := cmd.Flags().GetInt("template")
		sessionID, _ := cmd.Flags().GetInt("session")
		out := cmd.OutOrStdout()

		switch {
		case cmd.Flags().Changed("session"):
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tpl, sess, err := app.Sessions.Template(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.GenerateMermaid(tpl, graph.SessionOverlay(sess)))
			return nil

		case cmd.Flags().Changed("template"):
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tpl, err := app.Templates.Get(cmd.Context(), templateID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.GenerateMermaid(tpl, nil))
			return nil
		}

		if len(args) == 0 {
			return errors.New("a path, --template or --session is required")
		}
		tpls, err := validator.LoadPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for i, tpl := range tpls {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%%%% %s\n", tpl.Name)
			fmt.Fprint(out, graph.GenerateMermaid(tpl, nil))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Int("template", 0, "Render a stored template by id")
	graphCmd.Flags().Int("session", 0, "Render a stored session's progress by id")
}

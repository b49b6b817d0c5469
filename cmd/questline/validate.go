package main

import (
	"fmt"

	"github.com/aretw0/questline/internal/presentation/tui"
	"github.com/aretw0/questline/internal/validator"
	"github.com/aretw0/questline/pkg/engine"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check templates for consistency",
	Long: `Loads a template file, a directory of template files or a Loam directory of
markdown nodes and reports dangling references, invalid entry points, self loops,
unreachable nodes and cycles. Exits non-zero when any template has hard errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		eng := engine.New(engine.WithSelfLoops(cfg.Engine.AllowSelfLoops))

		reports, err := validator.ValidatePath(cmd.Context(), eng, path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		render := tui.NewRenderer(out)
		for _, r := range reports {
			text, err := render(tui.ValidationReport(r.Source, r.Template, r.Result))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		}

		if n := validator.Invalid(reports); n > 0 {
			return fmt.Errorf("%d of %d templates are invalid", n, len(reports))
		}
		fmt.Fprintf(out, "%d templates valid ✅\n", len(reports))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}


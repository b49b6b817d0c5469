package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/questline/internal/cli"
	"github.com/aretw0/questline/internal/presentation/tui"
	"github.com/aretw0/questline/pkg/runner"
	"github.com/aretw0/questline/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Run and inspect game sessions",
	Long:    `Start sessions on stored templates, advance them node by node and inspect their progress.`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <template-id>",
	Short: "Start a session at the template's entry node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		templateID, err := parseID(args[0])
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		guild, _ := cmd.Flags().GetString("guild")

		return withApp(cmd, func(app *cli.App) error {
			snap, err := app.Sessions.Start(cmd.Context(), templateID, name, guild)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		})
	},
}

var sessionAdvanceCmd = &cobra.Command{
	Use:   "advance <session-id> <node-id>",
	Short: "Move a session to a destination of its current node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		to, err := parseID(args[1])
		if err != nil {
			return err
		}

		return withApp(cmd, func(app *cli.App) error {
			res, err := app.Sessions.Advance(cmd.Context(), id, to)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, &res.Snapshot)
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Aliases: []string{"inspect"},
	Short:   "Show where a session stands and where it can go",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(app *cli.App) error {
			snap, err := app.Sessions.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		})
	},
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		guild, _ := cmd.Flags().GetString("guild")

		return withApp(cmd, func(app *cli.App) error {
			ids, err := app.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTEMPLATE\tGUILD\tNODE\tSTEPS")
			for _, id := range ids {
				sess, err := app.Sessions.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				if guild != "" && sess.GuildID != guild {
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\n",
					sess.ID, sess.Name, sess.TemplateID, sess.GuildID, sess.CurrentNodeID, len(sess.History))
			}
			return tw.Flush()
		})
	},
}

var sessionPlayCmd = &cobra.Command{
	Use:   "play <session-id>",
	Short: "Play a session interactively from the terminal",
	Long: `Shows the current node, reads the next destination from standard input
and advances until the session completes. Type q to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(app *cli.App) error {
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			out := cmd.OutOrStdout()
			r := runner.New(app.Sessions, cmd.InOrStdin(), out,
				runner.WithRenderer(runner.ContentRenderer(tui.NewRenderer(out))),
				runner.WithLogger(app.Logger),
			)
			_, err := r.Run(ctx, id)
			if ctx.Signal() != nil {
				return nil
			}
			return err
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>...",
	Aliases: []string{"rm"},
	Short:   "Remove one or more sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *cli.App) error {
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				if _, err := app.Sessions.Load(cmd.Context(), id); err != nil {
					return err
				}
				if err := app.Sessions.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session %d\n", id)
			}
			return nil
		})
	},
}

func withApp(cmd *cobra.Command, fn func(app *cli.App) error) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// printSnapshot writes the session as JSON with --json, otherwise as a markdown report.
func printSnapshot(cmd *cobra.Command, snap *session.Snapshot) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	text, err := tui.NewRenderer(out)(tui.SessionReport(snap.Session, snap.Next, snap.Complete))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, text)
	return err
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd, sessionAdvanceCmd, sessionShowCmd, sessionListCmd, sessionPlayCmd, sessionDeleteCmd)

	sessionCmd.PersistentFlags().Bool("json", false, "Print sessions as JSON")
	sessionStartCmd.Flags().String("name", "", "Session name")
	sessionStartCmd.Flags().String("guild", "", "Discord guild id")
	sessionListCmd.Flags().String("guild", "", "Only list sessions of this guild")
}

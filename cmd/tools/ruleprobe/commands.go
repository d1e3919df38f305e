package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/homebot/backend/internal/analysis/resolver"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
)

func newRootCmd() *cobra.Command {
	var rulesPath string

	root := &cobra.Command{
		Use:           "ruleprobe",
		Short:         "Inspect and test chatbot rule tables",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&rulesPath, "rules", "", "YAML rules file (defaults to the built-in tables)")

	root.AddCommand(
		newListCmd(&rulesPath),
		newResolveCmd(&rulesPath),
		newValidateCmd(&rulesPath),
	)
	return root
}

func loadBots(path string) ([]rule.Bot, error) {
	if path == "" {
		return rule.Seed(), nil
	}
	return rule.Load(path)
}

func newListCmd(rulesPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bots and their rules in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bots, err := loadBots(*rulesPath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, bot := range bots {
				fmt.Fprintf(w, "%s\t(%s)\t\n", bot.ID, bot.Name)
				for i, r := range bot.Rules {
					triggers := strings.Join(r.Triggers, ", ")
					if r.IsFallback() {
						triggers = "<fallback>"
					}
					fmt.Fprintf(w, "  %d. %s\t%s\t%s\n", i+1, r.Key, r.Expression, triggers)
				}
			}
			return w.Flush()
		},
	}
}

func newResolveCmd(rulesPath *string) *cobra.Command {
	var botID string

	cmd := &cobra.Command{
		Use:   "resolve [text]",
		Short: "Show which rule answers the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bots, err := loadBots(*rulesPath)
			if err != nil {
				return err
			}

			bot, ok := rule.NewMemoryStore(bots).FindByID(botID)
			if !ok {
				return fmt.Errorf("bot %q not found", botID)
			}

			res, err := resolver.New(bot)
			if err != nil {
				return err
			}

			matched := res.Resolve(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule:       %s\n", matched.Key)
			fmt.Fprintf(out, "expression: %s\n", matched.Expression)
			fmt.Fprintf(out, "fallback:   %t\n", matched.IsFallback())
			fmt.Fprintf(out, "response:\n%s\n", matched.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&botID, "bot", rule.ProductAssistantID, "bot id to resolve against")
	return cmd
}

func newValidateCmd(rulesPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every rule table is well formed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bots, err := loadBots(*rulesPath)
			if err != nil {
				return err
			}

			for _, bot := range bots {
				if _, err := resolver.New(bot); err != nil {
					return fmt.Errorf("bot %q: %w", bot.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok  %s (%d rules)\n", bot.ID, len(bot.Rules))
			}
			return nil
		},
	}
}

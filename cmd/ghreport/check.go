package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/ghreport/internal/config"
)

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the rules file and print each repository's resolved profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := config.LoadRules(opts.cfg.RulesPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			profiles := rules.Profiles()
			for _, repo := range rules.RepoNames() {
				p := profiles[repo]
				rulesList := strings.Join(p.ActiveRules, ", ")
				if rulesList == "" {
					rulesList = "(label heuristics only)"
				}
				if _, err := fmt.Fprintf(out, "%s\n  importance: %s\n  rules: %s\n", repo, p.Importance, rulesList); err != nil {
					return err
				}
				if p.Context != "" {
					if _, err := fmt.Fprintf(out, "  context: %s\n", strings.ReplaceAll(p.Context, "\n", " / ")); err != nil {
						return err
					}
				}
			}

			if d := rules.DynamicSettings(); d.Enabled {
				if _, err := fmt.Fprintf(out, "discovery: min score %d, add within %dd, remove after %dd\n",
					d.MinActivityScore, int(d.AddWindow.Hours()/24), int(d.RemoveAfter.Hours()/24)); err != nil {
					return err
				}
			} else if _, err := fmt.Fprintln(out, "discovery: disabled"); err != nil {
				return err
			}

			_, err = fmt.Fprintf(out, "%d repositories, %d watch rules\n", len(profiles), len(rules.WatchRules))
			return err
		},
	}
}

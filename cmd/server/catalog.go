package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/skilltree/internal/server"
)

func newCatalogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate and print the skill catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := server.LoadCatalog(a.cfg.Progression.CatalogPath)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SKILL\tCATEGORY\tTITLES\tBADGES")
			for _, sk := range c.Skills() {
				var titles []string
				for _, t := range c.TitlesFor(sk.Name) {
					titles = append(titles, fmt.Sprintf("%d:%s", t.Level, t.Name))
				}
				var badges []string
				for _, b := range c.AllBadges() {
					if b.Unlock.Skill == sk.Name {
						badges = append(badges, fmt.Sprintf("%d:%s", b.Unlock.Level, b.Name))
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sk.Name, sk.Category,
					strings.Join(titles, ", "), strings.Join(badges, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\ndaily challenges: %s\n", strings.Join(c.Challenges(), ", "))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func listCommand() *cobra.Command {
	var (
		filter storage.ListFilter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored organizations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := storage.NewStorage(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer db.Close()

			orgs, err := db.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if asJSON {
				for i := range orgs {
					orgs[i].RawContent = storage.RawContent{}
				}
				out, err := json.MarshalIndent(orgs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode organizations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Categories", "Website", "Source"})
			for _, org := range orgs {
				t.AppendRow(table.Row{org.Name, strings.Join(org.Categories, ", "), org.WebsiteURL, org.SourceURL})
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d organizations", len(orgs))})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", "", "only organizations in this category")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "only active organizations")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of organizations (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

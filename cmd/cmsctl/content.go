package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/headless-cms-admin/internal/fieldtypes"
	"github.com/spf13/cobra"
)

var publishDueCmd = &cobra.Command{
	Use:   "publish-due",
	Short: "Publish every scheduled entry whose time has passed",
	RunE:  runPublishDue,
}

var fieldTypesCmd = &cobra.Command{
	Use:   "field-types",
	Short: "List the field type catalog",
	Args:  cobra.NoArgs,
	RunE:  runFieldTypes,
}

var fieldTypesCategory string

func init() {
	rootCmd.AddCommand(publishDueCmd, fieldTypesCmd)

	fieldTypesCmd.Flags().StringVar(&fieldTypesCategory, "category", "", "only list one category")
}

func runPublishDue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.services.Scheduler.PublishDue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %d scheduled entries\n", n)
	return nil
}

func runFieldTypes(cmd *cobra.Command, args []string) error {
	types := fieldtypes.All()
	if fieldTypesCategory != "" {
		types = fieldtypes.ByCategory(fieldtypes.Category(fieldTypesCategory))
		if len(types) == 0 {
			return fmt.Errorf("unknown category %q", fieldTypesCategory)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCATEGORY\tLABEL\tDESCRIPTION")
	for _, info := range types {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Type, info.Category, info.Label, info.Description)
	}
	return w.Flush()
}

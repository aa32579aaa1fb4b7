package main

import (
	"fmt"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <title> [description]",
		Short: "Show which category an expense would get, without saving",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runClassify,
	}

	cmd.Flags().StringP("category", "c", "", "category override to test")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	override, _ := cmd.Flags().GetString("category")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	cat, err := buildCategorizer(settings)
	if err != nil {
		return err
	}
	defer cat.Close()

	decision := cat.engine.Decide(ctx, args[0], description, model.Category(override))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
		cli.BoldStyle.Render(string(decision.Category)),
		cli.SubtleStyle.Render("via"),
		decision.Source)
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/draftforge/draftforge/internal/descriptor"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var optionsCmd = &cobra.Command{
	Use:   "options [setup id] [schema key] [property]",
	Short: "Resolve the selectable options for a descriptor field",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		dataDir := mustFlagString(cmd, "data-dir", true)

		db, err := store.New(store.Config{Logger: log, Dir: dataDir})
		if err != nil {
			log.Fatal("failed to open store: %s", err)
		}
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cache := descriptor.NewOptionCache(ctx)
		defer cache.Close()
		resolver := descriptor.NewResolver(log, db, cache)

		property := ""
		if len(args) > 2 {
			property = args[2]
		}
		options, err := resolver.Resolve(ctx, args[0], args[1], property)
		if err != nil {
			log.Fatal("failed to resolve options: %s", err)
		}
		if len(options) == 0 {
			fmt.Println(color.YellowString("no options"))
			return
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, option := range options {
			fmt.Printf("%-40s%s\n", option.Label, cyan(option.Value))
		}
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

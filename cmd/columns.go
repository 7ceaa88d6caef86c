package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/draftforge/draftforge/internal/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns [schema file]",
	Short: "Show the flattened table columns for a JSON schema",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		buf, err := os.ReadFile(args[0])
		if err != nil {
			logger.Fatal("error reading schema file: %s", err)
		}
		doc := schema.ParseDocument(string(buf))
		if doc.Root == nil {
			logger.Fatal("schema does not parse as an object")
		}
		var hints *schema.UIHint
		if hintsFile := mustFlagString(cmd, "hints", false); hintsFile != "" {
			hintsBuf, err := os.ReadFile(hintsFile)
			if err != nil {
				logger.Fatal("error reading hints file: %s", err)
			}
			hints = &schema.UIHint{}
			if err := json.Unmarshal(hintsBuf, hints); err != nil {
				logger.Fatal("error parsing hints file: %s", err)
			}
		}
		columns := schema.OrderByHints(schema.FlattenToColumns(doc), hints)
		yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, column := range columns {
			line := fmt.Sprintf("%-30s%-10s%s", yellow(column.Key), column.Type, cyan(column.Path))
			if len(column.EnumValues) > 0 {
				values := make([]string, 0, len(column.EnumValues))
				for _, value := range column.EnumValues {
					values = append(values, fmt.Sprint(value))
				}
				line += "  [" + strings.Join(values, ", ") + "]"
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().String("hints", "", "a JSON layout hints file used to order the columns")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/draftforge/draftforge/internal/schema"
	"github.com/spf13/cobra"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults [schema file]",
	Short: "Synthesize the default document for a JSON schema",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		buf, err := os.ReadFile(args[0])
		if err != nil {
			logger.Fatal("error reading schema file: %s", err)
		}
		doc := schema.ParseDocument(string(buf))
		document := schema.SynthesizeDocument(doc)
		out, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			logger.Fatal("error encoding document: %s", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(defaultsCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/draftforge/draftforge/internal/validate"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema file] [document file]",
	Short: "Validate a JSON document against a JSON schema",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		schemaBuf, err := os.ReadFile(args[0])
		if err != nil {
			logger.Fatal("error reading schema file: %s", err)
		}
		documentBuf, err := os.ReadFile(args[1])
		if err != nil {
			logger.Fatal("error reading document file: %s", err)
		}
		validator, err := validate.New(string(schemaBuf))
		if err != nil {
			logger.Fatal("error compiling schema: %s", err)
		}
		if err := validator.ValidateJSON(string(documentBuf)); err != nil {
			color.Red("invalid: %s", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", color.GreenString("valid"))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/export"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/mapping"
)

var mappingOut string

var templateCmd = &cobra.Command{
	Use:   "template <out.xlsx>",
	Short: "Write the built-in protocol template",
	Long: `Writes the built-in "Messprotokoll" workbook. Together with the default
mapping (--mapping-out) it is a starting point for a customer template.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVar(&mappingOut, "mapping-out", "", "also write the default mapping rules (JSON)")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	if err := export.WriteTemplate(args[0]); err != nil {
		return err
	}
	fmt.Printf("Template written to %s\n", args[0])

	if mappingOut == "" {
		return nil
	}
	f, err := os.Create(mappingOut)
	if err != nil {
		return err
	}
	rules := mapping.Default()
	if err := rules.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Mapping with %d rules written to %s\n", len(rules.Rules), mappingOut)
	return nil
}

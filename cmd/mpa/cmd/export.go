package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/session"
)

var (
	exportFlags docFlags
	exportOut   string
	exportCalc  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a measurement protocol into the XLSX template",
	Long: `Assembles a protocol document the same way as calc and writes it into a copy
of the XLSX template according to the mapping rules. The template itself is
never modified.`,
	Example: `  mpa export --doc prot.json -o AT-25-117.xlsx
  mpa export --doc prot.json --calc --template vorlage.xlsx --mapping mapping.json -o out.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportFlags.register(exportCmd.Flags())
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output workbook (required)")
	exportCmd.Flags().BoolVar(&exportCalc, "calc", false, "calculate tolerances before exporting")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	s, cleanup, err := newSession(nil, exportCalc)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := exportFlags.apply(cmd.Context(), s); err != nil {
		return err
	}
	if exportCalc {
		for _, e := range s.CalculateAll() {
			fmt.Fprintf(os.Stderr, "warning: %v\n", e)
		}
	}

	res := <-s.Export(cmd.Context(), exportOut)
	if res.Err != nil {
		return res.Err
	}
	printArtifact(res)
	return nil
}

func printArtifact(res session.ExportResult) {
	fmt.Printf("Exported %s\n", res.Artifact.Path)
	fmt.Printf("  Cells:  %d\n", res.Artifact.Cells)
	fmt.Printf("  Size:   %d bytes\n", res.Artifact.Size)
	fmt.Printf("  SHA256: %s\n", res.Artifact.SHA256)
}

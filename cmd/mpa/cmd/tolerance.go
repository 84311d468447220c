package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/tolerance"
)

var fitsRanges bool

var toleranceCmd = &cobra.Command{
	Use:   "tolerance",
	Short: "Query and convert ISO 286 tolerance tables",
}

var toleranceLookupCmd = &cobra.Command{
	Use:   "lookup <nominal> <fit>",
	Short: "Look up the deviation of a fit for a nominal size",
	Example: `  mpa tolerance lookup 25 H7
  mpa tolerance lookup 12,5 g6 --table iso286.json`,
	Args: cobra.ExactArgs(2),
	RunE: runToleranceLookup,
}

var toleranceFitsCmd = &cobra.Command{
	Use:   "fits",
	Short: "List the fits of the tolerance table",
	Args:  cobra.NoArgs,
	RunE:  runToleranceFits,
}

var toleranceConvertCmd = &cobra.Command{
	Use:   "convert <legacy.json> <out.json>",
	Short: "Convert a legacy row table into the tolerance table format",
	Long: `Reads a flat table of rows with toleranzklasse, lowerlimit, upperlimit, es
and ei (deviations in micrometres) and writes it in the grouped table format
with deviations in millimetres.`,
	Args: cobra.ExactArgs(2),
	RunE: runToleranceConvert,
}

func init() {
	rootCmd.AddCommand(toleranceCmd)
	toleranceCmd.AddCommand(toleranceLookupCmd)
	toleranceCmd.AddCommand(toleranceFitsCmd)
	toleranceCmd.AddCommand(toleranceConvertCmd)

	toleranceFitsCmd.Flags().BoolVar(&fitsRanges, "ranges", false, "print the size ranges of every fit")
}

func runToleranceLookup(cmd *cobra.Command, args []string) error {
	nominal, err := parseCoordinate(args[0])
	if err != nil {
		return fmt.Errorf("invalid nominal size %q", args[0])
	}
	table, err := loadTable()
	if err != nil {
		return err
	}

	dev, err := tolerance.ComputeDeviation(nominal, args[1], table)
	if err != nil {
		return err
	}
	max, min := dev.Limits(nominal)

	fmt.Printf("Nominal:   %.3f %s\n", nominal, args[1])
	fmt.Printf("Upper:     %+.3f\n", dev.Upper)
	fmt.Printf("Lower:     %+.3f\n", dev.Lower)
	fmt.Printf("Maximum:   %.4f\n", max)
	fmt.Printf("Minimum:   %.4f\n", min)
	fmt.Printf("Target:    %.4f\n", dev.Target(nominal))
	return nil
}

func runToleranceFits(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}

	fits := table.Fits()
	fmt.Printf("Table %s (%s): %d fits\n\n", cfg.ToleranceTable, table.Unit, len(fits))
	if !fitsRanges {
		var holes, shafts []string
		for _, f := range fits {
			if f.IsHole() {
				holes = append(holes, f.String())
			} else {
				shafts = append(shafts, f.String())
			}
		}
		printFitList("Holes", holes)
		printFitList("Shafts", shafts)
		return nil
	}

	fmt.Printf("%-6s %-6s %10s %10s %10s %10s\n", "Fit", "Kind", "Over", "Up to", "Upper", "Lower")
	for _, f := range fits {
		for _, r := range table.Ranges(f) {
			fmt.Printf("%-6s %-6s %10.1f %10.1f %+10.3f %+10.3f\n", f, fitKind(f), r.Min, r.Max, r.Upper, r.Lower)
		}
	}
	return nil
}

func fitKind(f tolerance.Fit) string {
	if f.IsHole() {
		return "hole"
	}
	return "shaft"
}

func printFitList(title string, fits []string) {
	fmt.Printf("%s (%d):\n", title, len(fits))
	for i, f := range fits {
		if i > 0 && i%10 == 0 {
			fmt.Println()
		}
		fmt.Printf("  %-6s", f)
	}
	fmt.Println()
}

func runToleranceConvert(cmd *cobra.Command, args []string) error {
	table, err := tolerance.LoadLegacy(args[0])
	if err != nil {
		return err
	}

	out, err := os.CreateTemp(filepath.Dir(args[1]), ".tolerances-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(out.Name())

	if err := table.Save(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(out.Name(), args[1]); err != nil {
		return err
	}

	logger.Info("tolerance table converted",
		zap.String("source", args[0]),
		zap.String("dest", args[1]),
		zap.Int("fits", table.Len()))
	fmt.Printf("Converted %d fits to %s\n", table.Len(), args[1])
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/picker"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/session"
)

// docFlags describe how a protocol document is assembled on the command line.
type docFlags struct {
	doc        string
	drawing    string
	picks      []string
	sets       []string
	pickRadius float64
}

func (f *docFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.doc, "doc", "d", "", "protocol document to start from (JSON)")
	fs.StringVar(&f.drawing, "drawing", "", "DXF drawing used by --pick")
	fs.StringArrayVarP(&f.picks, "pick", "p", nil, "bind the entity at a drawing point: field@x,y (repeatable)")
	fs.StringArrayVarP(&f.sets, "set", "s", nil, "set a field: field=value (repeatable)")
	fs.Float64Var(&f.pickRadius, "pick-radius", 5, "pick radius in drawing units")
}

// apply loads the document into s, then binds picks and explicit values in
// that order.
func (f *docFlags) apply(ctx context.Context, s *session.Session) error {
	if f.doc != "" {
		file, err := os.Open(f.doc)
		if err != nil {
			return err
		}
		doc, err := protocol.Decode(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", f.doc, err)
		}
		s.SetDocument(doc)
	}

	if len(f.picks) > 0 {
		if f.drawing == "" {
			return fmt.Errorf("--pick needs --drawing")
		}
		res := <-s.LoadDrawing(ctx, f.drawing)
		if res.Err != nil {
			return res.Err
		}
		for _, pick := range f.picks {
			ref, p, err := parsePick(pick)
			if err != nil {
				return err
			}
			hit, ok := picker.Pick(p, res.Drawing.Entities, f.pickRadius)
			if !ok {
				return fmt.Errorf("%s: no entity within %.3f of (%.3f, %.3f)", ref, f.pickRadius, p.X, p.Y)
			}
			if err := s.Set(ref, session.EntityValue(hit.Entity, ref)); err != nil {
				return err
			}
			logger.Debug("entity bound",
				zap.Stringer("field", ref),
				zap.String("source_id", hit.Entity.SourceID))
		}
	}

	for _, a := range f.sets {
		ref, v, err := parseAssignment(a)
		if err != nil {
			return err
		}
		if err := s.Set(ref, v); err != nil {
			return err
		}
	}
	return nil
}

var (
	calcFlags docFlags
	calcOut   string
	calcQuiet bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Fill and calculate a measurement protocol",
	Long: `Builds a protocol document from an existing JSON document, entity picks in a
drawing and explicit field values, then computes the tolerance deviations of
every row that has a fit.

Fields are addressed as header.<name> or row[<n>].<name>, for example
header.drawing_number or row[3].fit.`,
	Example: `  mpa calc --set row[1].nominal=25 --set row[1].fit=H7
  mpa calc --drawing part.dxf --pick row[1].nominal@120,45 --set row[1].fit=g6 -o prot.json`,
	Args: cobra.NoArgs,
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcFlags.register(calcCmd.Flags())
	calcCmd.Flags().StringVarP(&calcOut, "out", "o", "", "write the document to this file (JSON)")
	calcCmd.Flags().BoolVarP(&calcQuiet, "quiet", "q", false, "do not print the rows")
}

func runCalc(cmd *cobra.Command, args []string) error {
	s, cleanup, err := newSession(nil, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := calcFlags.apply(cmd.Context(), s); err != nil {
		return err
	}
	errs := s.CalculateAll()

	doc := s.Document()
	if !calcQuiet {
		printDocument(doc)
	}
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}

	if calcOut != "" {
		if err := writeDocument(doc, calcOut); err != nil {
			return err
		}
		fmt.Printf("Document written to %s\n", calcOut)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d rows could not be calculated", len(errs))
	}
	return nil
}

var rowColumns = []string{
	protocol.RowNominal, protocol.RowFit, protocol.RowUpper, protocol.RowLower,
	protocol.RowMax, protocol.RowMin, protocol.RowTarget, protocol.RowMeasured,
}

func printDocument(doc *protocol.Document) {
	h := doc.Header
	fmt.Printf("Drawing:  %s\n", h.DrawingNumber)
	fmt.Printf("Customer: %s  Order: %s  Pos.: %s\n", h.Customer, h.Order, h.Position)
	fmt.Printf("Date:     %s  Inspector: %s\n", h.Date, h.Inspector)
	fmt.Println()

	fmt.Printf("%3s", "Row")
	for _, c := range rowColumns {
		fmt.Printf(" %10s", c)
	}
	fmt.Printf("  %s\n", "instrument")
	fmt.Println(strings.Repeat("-", 3+11*len(rowColumns)+12))

	for n := 1; n <= protocol.MaxRows; n++ {
		if doc.Rows[n-1].IsEmpty() {
			continue
		}
		fmt.Printf("%3d", n)
		for _, c := range rowColumns {
			v, _ := doc.Resolve(protocol.RowField(n, c))
			fmt.Printf(" %10s", formatCell(c, v))
		}
		fmt.Printf("  %s\n", doc.Rows[n-1].Instrument)
	}
}

func formatCell(name string, v protocol.Value) string {
	f, ok := v.Float()
	if !ok || v.Kind != protocol.ValueNumber {
		return v.String()
	}
	switch name {
	case protocol.RowUpper, protocol.RowLower:
		return fmt.Sprintf("%+.3f", f)
	case protocol.RowMax, protocol.RowMin, protocol.RowTarget:
		return fmt.Sprintf("%.4f", f)
	}
	return v.String()
}

func writeDocument(doc *protocol.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := doc.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

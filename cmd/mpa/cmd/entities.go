package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/drawing"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/picker"
)

var (
	entityKind string
	pickRadius float64
	pickAll    bool
	pickLimit  int
)

var entitiesCmd = &cobra.Command{
	Use:   "entities <drawing.dxf>",
	Short: "List the pickable entities of a drawing",
	Long: `Extracts dimensions and texts from a DXF drawing and lists them with their
value, source handle and anchor position.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntities,
}

var pickCmd = &cobra.Command{
	Use:   "pick <drawing.dxf> <x> <y>",
	Short: "Pick the entity at a drawing position",
	Long: `Selects the entity closest to a point given in drawing coordinates, as a
click in the viewer would. With --all every entity within the radius is
listed, closest first.`,
	Args: cobra.ExactArgs(3),
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(pickCmd)

	entitiesCmd.Flags().StringVarP(&entityKind, "kind", "k", "",
		"only list entities of this kind (dimension, text)")

	pickCmd.Flags().Float64VarP(&pickRadius, "radius", "r", 5,
		"pick radius in drawing units")
	pickCmd.Flags().BoolVarP(&pickAll, "all", "a", false,
		"list all entities within the radius")
	pickCmd.Flags().IntVarP(&pickLimit, "limit", "n", 0,
		"maximum number of entities listed with --all (0 = no limit)")
}

func runEntities(cmd *cobra.Command, args []string) error {
	d, err := drawing.ExtractFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Drawing: %s (%s)\n", d.Source, d.Units)
	fmt.Printf("  Dimensions: %d\n", d.Count(drawing.KindDimension))
	fmt.Printf("  Texts:      %d\n", d.Count(drawing.KindText))
	fmt.Printf("  Geometry:   %d primitives\n", len(d.Primitives))
	if !d.Extents.IsEmpty() {
		fmt.Printf("  Extents:    %.2f x %.2f\n", d.Extents.Width(), d.Extents.Height())
	}
	fmt.Println()

	fmt.Printf("%5s %-10s %-8s %-10s %-24s %s\n", "Index", "Kind", "Handle", "Layer", "Value", "Anchor")
	for _, e := range d.Entities {
		if entityKind != "" && e.Kind.String() != entityKind {
			continue
		}
		printEntity(e)
	}
	return nil
}

func printEntity(e drawing.Entity) {
	c := anchorPosition(e)
	fmt.Printf("%5d %-10s %-8s %-10s %-24s (%.2f, %.2f)\n",
		e.Index, e.Kind, e.SourceID, e.Layer, entityValue(e), c.X, c.Y)
}

// anchorPosition is where an entity is reported: the middle of its
// dimension line, else its first point, else the centre of its extent.
func anchorPosition(e drawing.Entity) vec.Vec2 {
	a := e.Anchor
	switch {
	case len(a.Segments) > 0:
		return a.Segments[0].Midpoint()
	case len(a.Points) > 0:
		return a.Points[0]
	}
	return a.Bounds().Center()
}

func entityValue(e drawing.Entity) string {
	text := e.DisplayText()
	if e.Value.HasNumber && text != "" && text != e.Value.String() {
		return fmt.Sprintf("%s [%s]", e.Value, text)
	}
	if e.Value.HasNumber {
		return e.Value.String()
	}
	return text
}

func runPick(cmd *cobra.Command, args []string) error {
	x, err := parseCoordinate(args[1])
	if err != nil {
		return err
	}
	y, err := parseCoordinate(args[2])
	if err != nil {
		return err
	}

	d, err := drawing.ExtractFile(args[0])
	if err != nil {
		return err
	}
	p := vec.Vec2{X: x, Y: y}

	if pickAll {
		hits := picker.Nearest(p, d.Entities, pickRadius, pickLimit)
		if len(hits) == 0 {
			return fmt.Errorf("no entity within %.3f of (%.3f, %.3f)", pickRadius, x, y)
		}
		for _, h := range hits {
			fmt.Printf("%8.3f  ", h.Distance)
			printEntity(h.Entity)
		}
		return nil
	}

	hit, ok := picker.Pick(p, d.Entities, pickRadius)
	if !ok {
		return fmt.Errorf("no entity within %.3f of (%.3f, %.3f)", pickRadius, x, y)
	}
	fmt.Printf("%8.3f  ", hit.Distance)
	printEntity(hit.Entity)
	return nil
}

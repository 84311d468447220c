// Package viewer is the interactive drawing window. Clicks pick entities
// into the current target field of the session document.
//
// Controls: left click picks, right drag pans, scroll or +/- zooms, Space
// fits the drawing, Up/Down select the row, Tab cycles the field, C
// calculates tolerances, O opens a drawing, E exports, Q or Escape quits.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sync"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"go.uber.org/zap"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/session"
)

// Options configures a Viewer.
type Options struct {
	Logger     *zap.Logger
	ZoomFactor float64 // per scroll step or key press
	ExportName string  // file name suggested by the export dialog
}

// Viewer shows the session drawing in a window.
type Viewer struct {
	session *session.Session
	logger  *zap.Logger
	zoom    float64
	export  string

	target   Target
	selected int
	dragging bool
	last     f32.Point

	theme *material.Theme
	expl  *explorer.Explorer
	w     *app.Window

	mu     sync.Mutex // guards status, target, selected and w
	status string
}

// New creates a viewer for s.
func New(s *session.Session, opts Options) *Viewer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ZoomFactor <= 1 {
		opts.ZoomFactor = 1.2
	}
	if opts.ExportName == "" {
		opts.ExportName = "messprotokoll.xlsx"
	}

	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))

	return &Viewer{
		session:  s,
		logger:   opts.Logger,
		zoom:     opts.ZoomFactor,
		export:   opts.ExportName,
		target:   DefaultTarget(),
		selected: -1,
		theme:    th,
	}
}

func (v *Viewer) setStatus(format string, args ...interface{}) {
	v.mu.Lock()
	v.status = fmt.Sprintf(format, args...)
	w := v.w
	v.mu.Unlock()
	if w != nil {
		w.Invalidate()
	}
}

func (v *Viewer) statusLine() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fmt.Sprintf("target %s | %s", v.target.Field(), v.status)
}

// Open loads a drawing in the background.
func (v *Viewer) Open(path string) {
	v.setStatus("loading %s", path)
	res := v.session.LoadDrawing(context.Background(), path)
	go func() {
		r := <-res
		if r.Err != nil {
			v.setStatus("load failed: %v", r.Err)
			return
		}
		v.mu.Lock()
		v.selected = -1
		v.mu.Unlock()
		v.setStatus("%s: %d entities", path, len(r.Drawing.Entities))
	}()
}

// Export writes the protocol in the background.
func (v *Viewer) Export(path string) {
	v.setStatus("exporting %s", path)
	res := v.session.Export(context.Background(), path)
	go func() {
		r := <-res
		if r.Err != nil {
			v.setStatus("export failed: %v", r.Err)
			return
		}
		v.setStatus("exported %s (%d cells)", r.Artifact.Path, r.Artifact.Cells)
	}()
}

// Run handles window events until the window is closed.
func (v *Viewer) Run(w *app.Window) error {
	v.mu.Lock()
	v.w = w
	v.mu.Unlock()
	v.expl = explorer.NewExplorer(w)

	var ops op.Ops
	for {
		ev := w.Event()
		v.expl.ListenEvents(ev)

		switch e := ev.(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			ops.Reset()

			gtx := layout.Context{
				Ops:         &ops,
				Constraints: layout.Exact(e.Size),
				Metric:      e.Metric,
				Now:         e.Now,
				Source:      e.Source,
			}

			v.session.Resize(e.Size.X, e.Size.Y)

			if v.handleKeys(gtx) {
				return nil
			}
			v.handlePointer(gtx)

			v.layout(gtx, e.Size)
			e.Frame(&ops)
		}
	}
}

var keyNames = []key.Name{
	key.NameEscape, "Q", key.NameSpace, key.NameUpArrow, key.NameDownArrow,
	key.NameTab, "+", "-", "C", "O", "E",
}

// handleKeys processes key presses and reports whether to quit.
func (v *Viewer) handleKeys(gtx layout.Context) bool {
	for _, name := range keyNames {
		for {
			ev, ok := gtx.Event(key.Filter{Name: name, Optional: key.ModShift})
			if !ok {
				break
			}
			ke, ok := ev.(key.Event)
			if !ok || ke.State != key.Press {
				continue
			}

			center := vec.Vec2{X: float64(gtx.Constraints.Max.X) / 2, Y: float64(gtx.Constraints.Max.Y) / 2}
			switch ke.Name {
			case key.NameEscape, "Q":
				return true
			case key.NameSpace:
				v.session.FitView()
			case key.NameUpArrow:
				v.retarget(v.target.PrevRow())
			case key.NameDownArrow:
				v.retarget(v.target.NextRow())
			case key.NameTab:
				v.retarget(v.target.NextField())
			case "+":
				v.session.ZoomAt(center, v.zoom)
			case "-":
				v.session.ZoomAt(center, 1/v.zoom)
			case "C":
				v.calculate()
			case "O":
				v.chooseDrawing()
			case "E":
				v.chooseExport()
			}
			gtx.Execute(op.InvalidateCmd{})
		}
	}
	return false
}

func (v *Viewer) retarget(t Target) {
	v.mu.Lock()
	v.target = t
	v.mu.Unlock()
}

func (v *Viewer) handlePointer(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  v,
			Kinds:   pointer.Press | pointer.Release | pointer.Drag | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -math.MaxInt32, Max: math.MaxInt32},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}

		pos := vec.Vec2{X: float64(pe.Position.X), Y: float64(pe.Position.Y)}
		switch pe.Kind {
		case pointer.Press:
			switch pe.Buttons {
			case pointer.ButtonPrimary:
				v.pick(pos)
			case pointer.ButtonSecondary:
				v.dragging = true
				v.last = pe.Position
			}
		case pointer.Drag:
			if v.dragging {
				d := pe.Position.Sub(v.last)
				v.session.Pan(vec.Vec2{X: float64(d.X), Y: float64(d.Y)})
				v.last = pe.Position
			}
		case pointer.Release:
			v.dragging = false
		case pointer.Scroll:
			factor := v.zoom
			if pe.Scroll.Y > 0 {
				factor = 1 / v.zoom
			}
			if pe.Scroll.Y != 0 {
				v.session.ZoomAt(pos, factor)
			}
		}
		gtx.Execute(op.InvalidateCmd{})
	}
}

func (v *Viewer) pick(pos vec.Vec2) {
	field := v.target.Field()
	hit, ok, err := v.session.PickInto(field, pos)
	switch {
	case errors.Is(err, session.ErrNoDrawing):
		v.setStatus("no drawing loaded, press O")
	case err != nil:
		v.setStatus("%s: %v", field, err)
	case !ok:
		v.setStatus("nothing under the pointer")
	default:
		v.mu.Lock()
		v.selected = hit.Entity.Index
		v.target = v.target.Advance()
		v.mu.Unlock()

		val, _ := v.session.Resolve(field)
		v.setStatus("%s = %s (%s %s)", field, val, hit.Entity.Kind, hit.Entity.SourceID)
	}
}

func (v *Viewer) calculate() {
	errs := v.session.CalculateAll()
	if len(errs) == 0 {
		v.setStatus("tolerances calculated")
		return
	}
	v.setStatus("%d rows failed, first: %v", len(errs), errs[0])
}

func (v *Viewer) chooseDrawing() {
	go func() {
		file, err := v.expl.ChooseFile("dxf")
		if err != nil {
			if err != explorer.ErrUserDecline {
				v.setStatus("file picker failed: %v", err)
			}
			return
		}
		defer file.Close()

		if f, ok := file.(*os.File); ok {
			v.Open(f.Name())
		} else {
			v.setStatus("unable to get file path from picker")
		}
	}()
}

func (v *Viewer) chooseExport() {
	go func() {
		file, err := v.expl.CreateFile(v.export)
		if err != nil {
			if err != explorer.ErrUserDecline {
				v.setStatus("file picker failed: %v", err)
			}
			return
		}
		name := pathOf(file)
		file.Close()
		if name == "" {
			v.setStatus("unable to get file path from picker")
			return
		}
		v.Export(name)
	}()
}

func pathOf(w io.WriteCloser) string {
	if f, ok := w.(*os.File); ok {
		return f.Name()
	}
	return ""
}

func (v *Viewer) layout(gtx layout.Context, size image.Point) {
	paint.Fill(gtx.Ops, ColorBackground)

	layout.Stack{}.Layout(gtx,
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			if d := v.session.Drawing(); d != nil {
				view := v.session.View()
				v.mu.Lock()
				selected := v.selected
				v.mu.Unlock()
				renderDrawing(gtx, &view, d, selected)
			}
			return layout.Dimensions{Size: size}
		}),
		// Input layer
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			area := clip.Rect{Max: size}.Push(gtx.Ops)
			event.Op(gtx.Ops, v)
			area.Pop()
			return layout.Dimensions{Size: size}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{Top: unit.Dp(8), Left: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				label := material.Body2(v.theme, v.statusLine())
				label.Color = ColorGeometry
				return label.Layout(gtx)
			})
		}),
	)
}

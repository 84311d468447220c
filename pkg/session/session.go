// Package session ties a loaded drawing, its viewport and the protocol
// document together.
//
// A Session is safe for concurrent use. Drawing loads and exports run in the
// background and report on a channel; at most one load and one export run
// at a time. Picks, edits and calculations are synchronous.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/drawing"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/export"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/picker"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/tolerance"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/viewport"
)

var (
	// ErrBusy is returned when a load or export is requested while the
	// previous one is still running.
	ErrBusy = errors.New("session: operation already in progress")

	// ErrNoDrawing is returned by operations that need a loaded drawing.
	ErrNoDrawing = errors.New("session: no drawing loaded")

	// ErrNoExporter is returned by Export on a session without exporter.
	ErrNoExporter = errors.New("session: no exporter configured")
)

// Default options.
const (
	DefaultPickRadius = 50 // pixels
	DefaultFitMargin  = 0.05
	DefaultWidth      = 1024
	DefaultHeight     = 768
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Table    *tolerance.Table
	Exporter *export.Exporter
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	PickRadius float64 // pick tolerance in screen pixels
	FitMargin  float64
	Width      int
	Height     int
}

// LoadResult reports a finished drawing load.
type LoadResult struct {
	Drawing *drawing.Drawing
	Err     error
}

// ExportResult reports a finished export.
type ExportResult struct {
	Artifact export.Artifact
	Err      error
}

// Session is one measurement protocol being edited against one drawing.
type Session struct {
	id       string
	table    *tolerance.Table
	exporter *export.Exporter
	logger   *zap.Logger
	metrics  *metrics.Metrics
	radius   float64
	margin   float64

	mu      sync.RWMutex
	drawing *drawing.Drawing
	view    *viewport.Viewport
	doc     *protocol.Document

	busyMu    sync.Mutex
	loading   bool
	exporting bool
}

// New creates a session with an empty document.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.PickRadius <= 0 {
		opts.PickRadius = DefaultPickRadius
	}
	if opts.FitMargin <= 0 {
		opts.FitMargin = DefaultFitMargin
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	id := uuid.NewString()
	return &Session{
		id:       id,
		table:    opts.Table,
		exporter: opts.Exporter,
		logger:   opts.Logger.With(zap.String("session_id", id)),
		metrics:  opts.Metrics,
		radius:   opts.PickRadius,
		margin:   opts.FitMargin,
		view:     viewport.New(opts.Width, opts.Height),
		doc:      protocol.New(),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// acquire sets *flag unless it is already set.
func (s *Session) acquire(flag *bool) bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (s *Session) release(flag *bool) {
	s.busyMu.Lock()
	*flag = false
	s.busyMu.Unlock()
}

// LoadDrawing reads and extracts a drawing in the background. On success
// the session drawing is replaced and the viewport fitted to its extents;
// on failure the previous drawing stays.
func (s *Session) LoadDrawing(ctx context.Context, path string) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	if !s.acquire(&s.loading) {
		out <- LoadResult{Err: ErrBusy}
		close(out)
		return out
	}

	go func() {
		d, err := s.load(ctx, path)
		s.release(&s.loading)
		out <- LoadResult{Drawing: d, Err: err}
		close(out)
	}()
	return out
}

func (s *Session) load(ctx context.Context, path string) (*drawing.Drawing, error) {
	start := time.Now()
	d, err := drawing.ExtractFile(path)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.metrics.RecordLoad(metrics.ResultError, nil, time.Since(start))
		s.logger.Warn("drawing load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.drawing = d
	s.view.Fit(d.Extents, s.margin)
	s.mu.Unlock()

	s.metrics.RecordLoad(metrics.ResultOK, map[string]int{
		drawing.KindDimension.String(): d.Count(drawing.KindDimension),
		drawing.KindText.String():      d.Count(drawing.KindText),
	}, time.Since(start))
	s.logger.Info("drawing loaded",
		zap.String("path", path),
		zap.Stringer("units", d.Units),
		zap.Int("entities", len(d.Entities)),
		zap.Int("primitives", len(d.Primitives)),
	)
	return d, nil
}

// SetDrawing replaces the drawing and fits the viewport to it.
func (s *Session) SetDrawing(d *drawing.Drawing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = d
	if d != nil {
		s.view.Fit(d.Extents, s.margin)
	}
}

// Drawing returns the current drawing, or nil. Drawings are immutable.
func (s *Session) Drawing() *drawing.Drawing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawing
}

// Export writes a snapshot of the document in the background. Edits made
// while the export runs do not affect it.
func (s *Session) Export(ctx context.Context, dest string) <-chan ExportResult {
	out := make(chan ExportResult, 1)
	if s.exporter == nil {
		out <- ExportResult{Err: ErrNoExporter}
		close(out)
		return out
	}
	if !s.acquire(&s.exporting) {
		out <- ExportResult{Err: ErrBusy}
		close(out)
		return out
	}

	doc := s.Document()
	go func() {
		start := time.Now()
		art, err := s.exporter.Export(ctx, doc, dest)
		if err != nil {
			s.metrics.RecordExport(metrics.ResultError, 0, time.Since(start))
			s.logger.Error("export failed", zap.String("path", dest), zap.Error(err))
		} else {
			s.metrics.RecordExport(metrics.ResultOK, art.Cells, time.Since(start))
			s.logger.Info("protocol exported",
				zap.String("path", art.Path),
				zap.String("sha256", art.SHA256),
				zap.Int("cells", art.Cells),
			)
		}
		s.release(&s.exporting)
		out <- ExportResult{Artifact: art, Err: err}
		close(out)
	}()
	return out
}

// PickAt selects the entity under a screen position. The pick radius is
// fixed in pixels and converted through the current zoom.
func (s *Session) PickAt(screen vec.Vec2) (picker.Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pickLocked(screen)
}

func (s *Session) pickLocked(screen vec.Vec2) (picker.Hit, bool) {
	if s.drawing == nil {
		return picker.Hit{}, false
	}
	world := s.view.ScreenToWorld(screen)
	hit, ok := picker.Pick(world, s.drawing.Entities, s.view.PixelsToWorld(s.radius))
	s.metrics.RecordPick(ok)
	return hit, ok
}

// NearestAt lists the entities within the pick radius of a screen position,
// closest first.
func (s *Session) NearestAt(screen vec.Vec2, n int) []picker.Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.drawing == nil {
		return nil
	}
	world := s.view.ScreenToWorld(screen)
	return picker.Nearest(world, s.drawing.Entities, s.view.PixelsToWorld(s.radius), n)
}

// PickInto picks at a screen position and stores the entity value in the
// target field. It reports false without touching the document when
// nothing is under the pointer, and ErrNoDrawing before a drawing is loaded.
func (s *Session) PickInto(target protocol.FieldRef, screen vec.Vec2) (picker.Hit, bool, error) {
	if err := target.Validate(); err != nil {
		return picker.Hit{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing == nil {
		return picker.Hit{}, false, ErrNoDrawing
	}
	hit, ok := s.pickLocked(screen)
	if !ok {
		return picker.Hit{}, false, nil
	}
	if err := s.doc.Set(target, EntityValue(hit.Entity, target)); err != nil {
		return hit, true, err
	}
	s.logger.Debug("entity bound",
		zap.Stringer("field", target),
		zap.String("source_id", hit.Entity.SourceID),
		zap.Float64("distance", hit.Distance),
	)
	return hit, true, nil
}

// EntityValue converts an entity value for the target field. Numeric
// fields take the first number found in a text entity.
func EntityValue(e drawing.Entity, target protocol.FieldRef) protocol.Value {
	if e.Value.HasNumber {
		return protocol.Num(e.Value.Number)
	}
	if !target.IsHeader() && (target.Name == protocol.RowNominal || target.Name == protocol.RowMeasured) {
		if n, ok := drawing.NumberInText(e.Value.Text); ok {
			return protocol.Num(n)
		}
	}
	return protocol.Str(e.DisplayText())
}

// Set writes a document field.
func (s *Session) Set(ref protocol.FieldRef, v protocol.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Set(ref, v)
}

// Calculate computes the deviation of row n. On error the previous
// document state is kept apart from a stale deviation.
func (s *Session) Calculate(n int) error {
	if s.table == nil {
		return tolerance.ErrInvalidTable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.doc.Calculate(n, s.table)
	s.recordLookup(n, err)
	return err
}

// CalculateAll computes every row with a fit and returns the failures.
func (s *Session) CalculateAll() []*protocol.FieldError {
	if s.table == nil {
		return []*protocol.FieldError{{Field: protocol.RowFit, Err: tolerance.ErrInvalidTable}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := s.doc.CalculateAll(s.table)
	failed := make(map[int]error, len(errs))
	for _, fe := range errs {
		failed[fe.Row] = fe
	}
	for n := 1; n <= protocol.MaxRows; n++ {
		s.recordLookup(n, failed[n])
	}
	if len(errs) > 0 {
		s.logger.Info("calculation finished with errors", zap.Int("failed_rows", len(errs)))
	}
	return errs
}

// recordLookup counts a tolerance lookup for row n. Rows without fit do
// not look anything up.
func (s *Session) recordLookup(n int, err error) {
	row, rerr := s.doc.Row(n)
	if rerr != nil || row.Fit == "" || errors.Is(err, protocol.ErrMissingNominal) {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordLookup(metrics.ResultOK)
	case errors.Is(err, tolerance.ErrToleranceNotFound):
		s.metrics.RecordLookup(metrics.ResultNotFound)
	case errors.Is(err, tolerance.ErrOutOfRange):
		s.metrics.RecordLookup(metrics.ResultRange)
	default:
		s.metrics.RecordLookup(metrics.ResultError)
	}
}

// Resolve reads a document field.
func (s *Session) Resolve(ref protocol.FieldRef) (protocol.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Resolve(ref)
}

// Reset clears the document. The drawing and viewport are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Reset()
	s.logger.Debug("document reset")
}

// Document returns a snapshot of the document.
func (s *Session) Document() *protocol.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// SetDocument replaces the document with a copy of doc.
func (s *Session) SetDocument(doc *protocol.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
}

// View returns a copy of the viewport.
func (s *Session) View() viewport.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.view
}

// Pan moves the view by a screen delta.
func (s *Session) Pan(delta vec.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Pan(delta)
}

// ZoomAt zooms by factor keeping the world point under anchor fixed.
func (s *Session) ZoomAt(anchor vec.Vec2, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.ZoomAt(anchor, factor)
}

// Resize updates the screen size of the view.
func (s *Session) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Resize(width, height)
}

// FitView fits the view to the drawing extents.
func (s *Session) FitView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing != nil {
		s.view.Fit(s.drawing.Extents, s.margin)
	}
}

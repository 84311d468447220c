// Package export writes a protocol document into a copy of a spreadsheet
// template.
//
// Cells are written through the mapping rules only; everything else in the
// template, including the style of the written cells, is left as it is. The
// result is written to a temporary file next to the destination and renamed
// into place, so a failed export never leaves a partial file behind.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/mapping"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

// Artifact describes a written export.
type Artifact struct {
	Path   string
	Size   int64
	SHA256 string
	Cells  int // cells written by the rules
}

// Exporter fills a template according to a rule set.
type Exporter struct {
	template string
	rules    *mapping.RuleSet
	logger   *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used for export diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// NewExporter creates an exporter for the template at path.
func NewExporter(template string, rules *mapping.RuleSet, opts ...Option) *Exporter {
	e := &Exporter{
		template: template,
		rules:    rules,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Template returns the template path.
func (e *Exporter) Template() string {
	return e.template
}

// Export writes doc into a copy of the template stored at dest. The rules
// are validated before the template is opened; the document is only read.
// dest must not be the template itself.
func (e *Exporter) Export(ctx context.Context, doc *protocol.Document, dest string) (Artifact, error) {
	if sameFile(e.template, dest) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrTemplateOverwrite, dest)
	}
	bindings, err := e.rules.Compile()
	if err != nil {
		return Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	f, err := excelize.OpenFile(e.template)
	if err != nil {
		return Artifact{}, &TemplateError{Path: e.template, Err: err}
	}
	defer f.Close()

	cells, err := e.fill(ctx, f, doc, bindings)
	if err != nil {
		return Artifact{}, err
	}

	art, err := writeAtomic(ctx, f, dest)
	if err != nil {
		return Artifact{}, err
	}
	art.Cells = cells

	e.logger.Debug("protocol exported",
		zap.String("template", e.template),
		zap.String("path", art.Path),
		zap.Int64("size", art.Size),
		zap.Int("cells", art.Cells),
	)
	return art, nil
}

// targets resolves the sheet of every binding against the workbook and
// rejects two bindings that land on the same cell.
func (e *Exporter) targets(f *excelize.File, bindings []mapping.Binding) ([]string, error) {
	first := f.GetSheetName(0)
	checked := make(map[string]bool)
	seen := make(map[string]int)
	sheets := make([]string, len(bindings))

	for i, b := range bindings {
		sheet := b.Sheet
		if sheet == "" {
			sheet = first
		}
		if !checked[sheet] {
			idx, err := f.GetSheetIndex(sheet)
			if err != nil || idx < 0 {
				if err == nil {
					err = errors.New("no such sheet")
				}
				return nil, &TemplateError{Path: e.template, Sheet: sheet, Err: err}
			}
			checked[sheet] = true
		}

		key := strings.ToLower(sheet) + "!" + b.Cell
		if prev, dup := seen[key]; dup {
			return nil, &mapping.RuleError{Rule: b.Index, Msg: fmt.Sprintf("cell %s!%s already used by rule %d", sheet, b.Cell, prev)}
		}
		seen[key] = b.Index
		sheets[i] = sheet
	}
	return sheets, nil
}

func (e *Exporter) fill(ctx context.Context, f *excelize.File, doc *protocol.Document, bindings []mapping.Binding) (int, error) {
	sheets, err := e.targets(f, bindings)
	if err != nil {
		return 0, err
	}

	for i, b := range bindings {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		v, err := doc.Resolve(b.Field)
		if err != nil {
			return 0, &mapping.FieldUnknownError{Rule: b.Index, Field: b.Rule.Field, Err: err}
		}
		if err := writeCell(f, sheets[i], b.Cell, b.Directive.Apply(v)); err != nil {
			return 0, fmt.Errorf("mapping rule %d (%s!%s): %w", b.Index, sheets[i], b.Cell, err)
		}
	}
	return len(bindings), nil
}

// writeCell sets a cell value. The excelize setters keep the cell's style.
func writeCell(f *excelize.File, sheet, cell string, c mapping.Cell) error {
	switch c.Kind {
	case mapping.CellNumber:
		return f.SetCellFloat(sheet, cell, c.Number, c.Precision, 64)
	case mapping.CellText:
		return f.SetCellStr(sheet, cell, c.Text)
	}
	return f.SetCellValue(sheet, cell, nil)
}

// writeAtomic serializes f into a temporary file in the directory of dest,
// syncs it and renames it over dest.
func writeAtomic(ctx context.Context, f *excelize.File, dest string) (art Artifact, err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	sum := sha256.New()
	size, err := f.WriteTo(io.MultiWriter(tmp, sum))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return Artifact{}, fmt.Errorf("failed to sync workbook: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to close workbook: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return Artifact{}, fmt.Errorf("failed to move workbook into place: %w", err)
	}

	return Artifact{Path: dest, Size: size, SHA256: hexSum(sum)}, nil
}

// sameFile reports whether a and b name the same file, either by path or,
// when both exist, by identity.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/export"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/mapping"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/session"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/tolerance"
)

func loadTable() (*tolerance.Table, error) {
	if cfg.LegacyTolerances {
		return tolerance.LoadLegacy(cfg.ToleranceTable)
	}
	return tolerance.Load(cfg.ToleranceTable)
}

func loadRules() (*mapping.RuleSet, error) {
	if cfg.Mapping == "" {
		return mapping.Default(), nil
	}
	return mapping.Load(cfg.Mapping)
}

// templatePath returns the configured template, or writes the built-in one
// to a temporary directory. cleanup removes what was written.
func templatePath() (path string, cleanup func(), err error) {
	if cfg.Template != "" {
		return cfg.Template, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "mpa-template-")
	if err != nil {
		return "", nil, err
	}
	path = filepath.Join(dir, "template.xlsx")
	if err := export.WriteTemplate(path); err != nil {
		os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

// newSession builds a session from the configuration. The tolerance table
// is optional for commands that do not calculate.
func newSession(reg prometheus.Registerer, needTable bool) (*session.Session, func(), error) {
	var table *tolerance.Table
	if needTable {
		var err error
		if table, err = loadTable(); err != nil {
			return nil, nil, err
		}
		logger.Debug("tolerance table loaded", zap.String("path", cfg.ToleranceTable), zap.Int("fits", table.Len()))
	}

	rules, err := loadRules()
	if err != nil {
		return nil, nil, err
	}
	template, cleanup, err := templatePath()
	if err != nil {
		return nil, nil, err
	}

	s := session.New(session.Options{
		Table:      table,
		Exporter:   export.NewExporter(template, rules, export.WithLogger(logger)),
		Logger:     logger,
		Metrics:    metrics.New(reg),
		PickRadius: cfg.PickRadius,
		FitMargin:  cfg.FitMargin,
	})
	return s, cleanup, nil
}

// parseAssignment splits "field=value".
func parseAssignment(s string) (protocol.FieldRef, protocol.Value, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return protocol.FieldRef{}, protocol.Value{}, fmt.Errorf("invalid assignment %q (want field=value)", s)
	}
	ref, err := protocol.ParseFieldRef(strings.TrimSpace(name))
	if err != nil {
		return protocol.FieldRef{}, protocol.Value{}, err
	}
	return ref, protocol.Str(value), nil
}

// parsePick splits "field@x,y" with world coordinates.
func parsePick(s string) (protocol.FieldRef, vec.Vec2, error) {
	name, coords, ok := strings.Cut(s, "@")
	if !ok {
		return protocol.FieldRef{}, vec.Vec2{}, fmt.Errorf("invalid pick %q (want field@x,y)", s)
	}
	ref, err := protocol.ParseFieldRef(strings.TrimSpace(name))
	if err != nil {
		return protocol.FieldRef{}, vec.Vec2{}, err
	}
	p, err := parsePoint(coords)
	if err != nil {
		return protocol.FieldRef{}, vec.Vec2{}, fmt.Errorf("invalid pick %q: %w", s, err)
	}
	return ref, p, nil
}

func parsePoint(s string) (vec.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return vec.Vec2{}, fmt.Errorf("want x,y")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return vec.Vec2{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x, Y: y}, nil
}

func parseCoordinate(s string) (float64, error) {
	v, ok := protocol.ParseNumber(s)
	if !ok {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return v, nil
}

package cmd

import (
	"errors"
	"net/http"
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/viewer"
)

var (
	viewDoc     string
	viewMetrics string
)

var viewCmd = &cobra.Command{
	Use:   "view [drawing.dxf]",
	Short: "Open the interactive drawing viewer",
	Long: `Opens a window showing the drawing. Clicking a dimension or text binds its
value to the current target field of the protocol.

Controls:
  Left click     pick into the target field
  Right drag     pan
  Scroll, +/-    zoom
  Space          fit the drawing
  Up/Down        select the row
  Tab            cycle nominal, measured, fit and notes
  C              calculate tolerances
  O              open a drawing
  E              export the protocol
  Q, Escape      quit

Note: If keyboard doesn't work on Wayland, run with:
  GIO_BACKEND=x11 mpa view <drawing.dxf>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVarP(&viewDoc, "doc", "d", "", "protocol document to edit (JSON)")
	viewCmd.Flags().StringVar(&viewMetrics, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runView(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = viewMetrics
	}

	reg := prometheus.NewRegistry()
	s, cleanup, err := newSession(reg, true)
	if err != nil {
		return err
	}
	if viewDoc != "" {
		f := docFlags{doc: viewDoc}
		if err := f.apply(cmd.Context(), s); err != nil {
			cleanup()
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	v := viewer.New(s, viewer.Options{
		Logger:     logger,
		ZoomFactor: cfg.ZoomFactor,
	})
	title := "OpenTraceMeasure"
	if len(args) == 1 {
		title += " - " + args[0]
		v.Open(args[0])
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title(title))
		w.Option(app.Size(unit.Dp(1024), unit.Dp(768)))

		err := v.Run(w)
		cleanup()
		logger.Sync()
		if err != nil {
			logger.Error("viewer failed", zap.Error(err))
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

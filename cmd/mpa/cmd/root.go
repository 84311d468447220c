package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/config"
	"github.com/OpenTraceLab/OpenTraceMeasure/internal/logging"
)

var (
	// Global flags
	configFile       string
	verbose          bool
	logLevel         string
	tableFile        string
	legacyTolerances bool
	mappingFile      string
	templateFile     string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mpa",
	Short: "OpenTraceMeasure - measurement protocols from DXF drawings",
	Long: `OpenTraceMeasure (mpa) turns dimensions picked from a 2D DXF drawing into a
tolerance-aware measurement protocol and exports it into an XLSX template.

Examples:
  mpa view part.dxf                              # Pick dimensions interactively
  mpa entities part.dxf                          # List pickable entities
  mpa pick part.dxf 120 45 --all                 # Entities near a drawing point
  mpa tolerance lookup 25 H7                     # ISO fit deviation
  mpa calc --doc prot.json --set row[1].fit=H7   # Edit and calculate a protocol
  mpa export --doc prot.json -o protokoll.xlsx   # Fill the template
  mpa template vorlage.xlsx                      # Write the default template`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "configuration file (JSON)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVarP(&tableFile, "table", "t", "", "tolerance table file")
	flags.BoolVar(&legacyTolerances, "legacy", false, "tolerance table is a legacy tolerances.json list")
	flags.StringVarP(&mappingFile, "mapping", "m", "", "mapping rule file (default: built-in layout)")
	flags.StringVar(&templateFile, "template", "", "XLSX template (default: built-in layout)")
}

// setup loads the configuration, applies the flags and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("table") {
		cfg.ToleranceTable = tableFile
	}
	if flags.Changed("legacy") {
		cfg.LegacyTolerances = legacyTolerances
	}
	if flags.Changed("mapping") {
		cfg.Mapping = mappingFile
	}
	if flags.Changed("template") {
		cfg.Template = templateFile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", zap.String("config", configFile), zap.String("command", cmd.Name()))
	return nil
}

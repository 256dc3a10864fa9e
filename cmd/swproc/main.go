// Headless processing driver: builds one workflow configuration from flags,
// runs it once, and maps each failure kind to a distinct exit code.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"shallow-water-workbench/internal/export"
	"shallow-water-workbench/internal/model"
	"shallow-water-workbench/internal/raster"
	"shallow-water-workbench/internal/sensors"
	"shallow-water-workbench/internal/workflow"
)

const (
	exitOK             = 0
	exitUsage          = 1
	exitValidation     = 2
	exitExternalModel  = 3
	exitAlreadyRunning = 4
	exitCancelled      = 5
	exitIO             = 6
)

func main() {
	os.Exit(run())
}

func run() int {
	input := flag.String("input", "", "Input raster file to process")
	output := flag.String("output", "", "Output directory for result arrays")
	sensorID := flag.String("sensor", "sentinel2", "Sensor ID (sentinel2, landsat8)")
	bandNames := flag.String("bands", "B2,B3,B4,B5", "Comma-separated sensor band names")
	bandIndices := flag.String("band-indices", "1,2,3,4", "Comma-separated 1-based raster channel numbers")
	methodName := flag.String("method", "lut", "Inversion method: lut or direct")
	engineURL := flag.String("engine", "http://localhost:8421", "Base URL of the modeling engine service")
	gridSize := flag.Int("grid", 0, "Override grid size for all ranged parameters (0 keeps defaults)")
	logFile := flag.String("log", "", "Also log to this file with rotation")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: swproc -input <raster> -output <dir> [flags]")
		flag.PrintDefaults()
		return exitUsage
	}

	cfg, err := buildConfig(*sensorID, *bandNames, *methodName, *gridSize)
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		return exitValidation
	}

	names := splitList(*bandNames)
	indices, err := parseIndices(*bandIndices)
	if err != nil {
		logger.WithError(err).Error("Invalid band indices")
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := model.NewClient(*engineURL, logger)
	if err := engine.Ping(ctx); err != nil {
		logger.WithError(err).Error("Modeling engine unavailable")
		return exitExternalModel
	}

	loader := raster.NewLoader(logger)
	dataset, err := loader.Load(*input, names, indices)
	if err != nil {
		logger.WithError(err).Error("Failed to load input raster")
		return exitIO
	}

	exporter := export.NewExporter(logger)
	if err := exporter.ValidateOutputDir(*output); err != nil {
		logger.WithError(err).Error("Output directory not usable")
		return exitIO
	}

	controller := workflow.NewController(engine, logger)
	controller.SetConfig(cfg)

	for _, issue := range controller.Validate() {
		if issue.Severity == workflow.SeverityWarning {
			logger.Warn(issue.String())
		}
	}
	logger.WithField("lut_cells", controller.EstimateLUTSize()).Info("Starting processing")

	lastPercent := -1
	result, err := controller.Run(ctx, workflow.RunRequest{
		Mode:  workflow.RunProcessImage,
		Image: dataset,
		Progress: func(completed, total int) {
			percent := completed * 100 / total
			if percent != lastPercent {
				lastPercent = percent
				fmt.Fprintf(os.Stderr, "\rprogress: %3d%% (%d/%d)", percent, completed, total)
			}
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return reportFailure(logger, err)
	}

	files, err := exporter.WriteResult(result.Result, *output)
	if err != nil {
		logger.WithError(err).Error("Export failed")
		return exitIO
	}

	logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"output": *output,
		"files":  len(files),
	}).Info("Processing completed")
	fmt.Printf("done: %d files written to %s\n", len(files), *output)
	return exitOK
}

func reportFailure(logger *logrus.Logger, err error) int {
	var validationErr *workflow.ValidationError
	var modelErr *workflow.ExternalModelError

	switch {
	case errors.As(err, &validationErr):
		for _, issue := range validationErr.Issues {
			logger.Error(issue.String())
		}
		return exitValidation
	case errors.As(err, &modelErr):
		logger.WithError(modelErr).Error("Modeling engine failure")
		return exitExternalModel
	case errors.Is(err, workflow.ErrAlreadyRunning):
		logger.Error("A run is already in progress")
		return exitAlreadyRunning
	case errors.Is(err, workflow.ErrCancelled):
		logger.Warn("Run cancelled")
		return exitCancelled
	default:
		logger.WithError(err).Error("Processing failed")
		return exitIO
	}
}

func buildConfig(sensorID, bandNames, methodName string, gridSize int) (workflow.WorkflowConfig, error) {
	cfg := workflow.DefaultConfig()

	sensor, ok := sensors.Get(sensorID)
	if !ok {
		return cfg, fmt.Errorf("unknown sensor %q (available: %s)", sensorID, strings.Join(sensors.IDs(), ", "))
	}
	selected, err := sensor.Select(splitList(bandNames))
	if err != nil {
		return cfg, err
	}
	cfg.Sensor = selected

	method, err := workflow.ParseMethod(methodName)
	if err != nil {
		return cfg, err
	}
	cfg.Method = method

	if gridSize != 0 {
		for i := range cfg.Params {
			if cfg.Params[i].Mode == workflow.ModeRange {
				cfg.Params[i].GridSize = gridSize
			}
		}
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIndices(s string) ([]int, error) {
	parts := splitList(s)
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("band index %q is not an integer", p)
		}
		indices[i] = n
	}
	return indices, nil
}

func initLogger(debugMode bool, logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if logFile != "" {
		logger.AddHook(&fileHook{writer: &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
		}})
	}

	return logger
}

// fileHook mirrors every entry to a rotated log file.
type fileHook struct {
	writer    *lumberjack.Logger
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	if h.formatter == nil {
		h.formatter = &logrus.JSONFormatter{}
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

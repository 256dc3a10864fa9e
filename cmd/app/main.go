package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"shallow-water-workbench/internal/config"
	"shallow-water-workbench/internal/export"
	"shallow-water-workbench/internal/gui"
	"shallow-water-workbench/internal/model"
	"shallow-water-workbench/internal/raster"
	"shallow-water-workbench/internal/workflow"
)

const (
	AppName    = "Shallow Water Workbench"
	AppID      = "org.aquaremote.shallow-water-workbench"
	AppVersion = "1.0.0"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	engineURL := flag.String("engine", "", "Base URL of the modeling engine service (overrides settings)")
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Info("Starting Shallow Water Workbench")

	settingsPath, err := config.DefaultPath()
	var settings *config.Settings
	if err == nil {
		settings, err = config.Load(settingsPath)
	}
	if err != nil {
		logger.WithError(err).Warn("Could not load settings, using defaults")
		settings = config.Default()
	}
	if *engineURL != "" {
		settings.Processing.EngineURL = *engineURL
	}

	engine := model.NewClient(settings.Processing.EngineURL, logger)
	controller := workflow.NewController(engine, logger)
	loader := raster.NewLoader(logger)
	exporter := export.NewExporter(logger)

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.DocumentIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, controller, loader, exporter, settings, logger)
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

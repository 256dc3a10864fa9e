// Main application window and panel wiring
package gui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"shallow-water-workbench/internal/config"
	"shallow-water-workbench/internal/export"
	"shallow-water-workbench/internal/raster"
	"shallow-water-workbench/internal/sensors"
	"shallow-water-workbench/internal/workflow"
)

// Application is the main window over the workflow controller. All widget
// and event wiring lives here; the controller owns the semantics.
type Application struct {
	app      fyne.App
	window   fyne.Window
	logger   *logrus.Logger
	settings *config.Settings

	// Core collaborators
	controller *workflow.Controller
	loader     *raster.Loader
	exporter   *export.Exporter

	// Loaded state
	dataset    *raster.Dataset
	lastResult *workflow.ProcessingResult

	// Panels
	parameters *ParametersPanel
	workflowUI *WorkflowPanel
	results    *ResultsPanel
	menu       *MenuHandler

	statusCard *widget.Card
}

func NewApplication(app fyne.App, controller *workflow.Controller, loader *raster.Loader,
	exporter *export.Exporter, settings *config.Settings, logger *logrus.Logger) *Application {

	window := app.NewWindow("Shallow Water Workbench")
	window.Resize(fyne.NewSize(float32(settings.Window.Width), float32(settings.Window.Height)))
	window.CenterOnScreen()

	a := &Application{
		app:        app,
		window:     window,
		logger:     logger,
		settings:   settings,
		controller: controller,
		loader:     loader,
		exporter:   exporter,
	}

	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a
}

func (a *Application) initializeGUI() {
	cfg := a.controller.Config()
	a.parameters = NewParametersPanel(cfg, a.logger)
	a.workflowUI = NewWorkflowPanel(cfg, a.logger)
	a.results = NewResultsPanel()
	a.menu = NewMenuHandler(a.window, a.logger)
	a.statusCard = widget.NewCard("Status", "", widget.NewLabel("No image loaded"))

	a.parameters.SetEstimate(a.controller.EstimateLUTSize())
}

func (a *Application) setupLayout() {
	left := container.NewScroll(container.NewVBox(
		widget.NewCard("Parameters", "", a.parameters.GetContainer()),
	))

	right := container.NewVSplit(
		container.NewVBox(
			widget.NewCard("Workflow", "", a.workflowUI.GetContainer()),
			a.statusCard,
		),
		container.NewScroll(a.results.GetContainer()),
	)
	right.SetOffset(0.45)

	main := container.NewHSplit(left, right)
	main.SetOffset(0.35)

	a.window.SetMainMenu(a.menu.GetMainMenu())
	a.window.SetContent(main)
}

func (a *Application) setupCallbacks() {
	a.parameters.SetOnApply(func(specs []workflow.ParameterSpec) {
		for _, spec := range specs {
			if err := a.controller.SetParameter(spec.Name, spec); err != nil {
				a.showError("Invalid Parameter", err)
				return
			}
		}
		a.parameters.SetEstimate(a.controller.EstimateLUTSize())
		a.refreshValidation()
	})

	a.workflowUI.SetCallbacks(
		a.startRun,
		a.controller.Cancel,
		func(sensorID string, bands []string, method workflow.Method) {
			sensor, ok := sensors.Get(sensorID)
			if !ok {
				return
			}
			selected, err := sensor.Select(bands)
			if err != nil {
				a.showError("Invalid Band Selection", err)
				return
			}
			a.controller.SetSensor(selected)
			a.controller.SetMethod(method)
			a.refreshValidation()
		},
	)

	a.menu.SetCallbacks(a.loadImage, a.exportResults)
}

func (a *Application) refreshValidation() {
	issues := a.controller.Validate()
	if len(issues) == 0 {
		a.updateStatus("Configuration valid")
		return
	}
	text := ""
	for _, issue := range issues {
		text += issue.String() + "\n"
	}
	a.updateStatus(text)
}

func (a *Application) loadImage(path string) {
	cfg := a.controller.Config()
	names := cfg.Sensor.BandNames()
	indices := make([]int, len(names))
	for i := range indices {
		indices[i] = i + 1
	}

	dataset, err := a.loader.Load(path, names, indices)
	if err != nil {
		a.showError("Image Load Failed", err)
		return
	}

	a.dataset = dataset
	a.settings.Paths.LastImageDir = path
	a.results.Clear()
	a.updateStatus(fmt.Sprintf("Loaded %s (%dx%d, %d bands, %d valid pixels)",
		path, dataset.Width, dataset.Height, len(dataset.Bands), dataset.CountValid()))
}

// startRun launches one invocation on a worker goroutine so the interface
// stays responsive; progress and completion marshal back via fyne.Do.
func (a *Application) startRun() {
	if a.dataset == nil {
		a.showError("No Image", fmt.Errorf("load an image before running"))
		return
	}

	a.workflowUI.SetRunning(true)

	go func() {
		result, err := a.controller.Run(context.Background(), workflow.RunRequest{
			Mode:  workflow.RunProcessImage,
			Image: a.dataset,
			Progress: func(completed, total int) {
				fyne.Do(func() {
					a.workflowUI.SetProgress(completed, total)
				})
			},
		})

		fyne.Do(func() {
			a.workflowUI.SetRunning(false)
			switch {
			case errors.Is(err, workflow.ErrCancelled):
				a.workflowUI.SetStatus("Cancelled")
				a.updateStatus("Run cancelled; partial results discarded")
			case errors.Is(err, workflow.ErrAlreadyRunning):
				a.showError("Run In Progress", err)
			case err != nil:
				a.workflowUI.SetStatus("Failed")
				a.showError("Run Failed", err)
			default:
				a.lastResult = result.Result
				a.results.Update(result.Result)
				a.workflowUI.SetStatus("Completed")
				a.updateStatus(fmt.Sprintf("Run %s completed", result.RunID))
			}
		})
	}()
}

func (a *Application) exportResults(dir string) {
	if a.lastResult == nil {
		a.showError("Nothing To Export", fmt.Errorf("run a processing workflow first"))
		return
	}
	files, err := a.exporter.WriteResult(a.lastResult, dir)
	if err != nil {
		a.showError("Export Failed", err)
		return
	}
	a.settings.Paths.LastOutputDir = dir
	a.showInfo("Results Exported", fmt.Sprintf("%d files written to:\n%s", len(files), dir))
}

func (a *Application) updateStatus(message string) {
	a.statusCard.SetContent(widget.NewLabel(message))
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
}

func (a *Application) showInfo(title, message string) {
	a.logger.Info(title)
	dialog.ShowInformation(title, message, a.window)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.controller.Cancel()
		if path, err := config.DefaultPath(); err == nil {
			if err := a.settings.Save(path); err != nil {
				a.logger.WithError(err).Warn("Could not save settings")
			}
		}
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

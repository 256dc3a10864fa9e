package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"shallow-water-workbench/internal/sensors"
	"shallow-water-workbench/internal/workflow"
)

// WorkflowPanel selects sensor, bands and method, and drives run lifecycle:
// start, cancel, progress.
type WorkflowPanel struct {
	logger *logrus.Logger

	sensorSelect *widget.Select
	bandsEntry   *widget.Entry
	methodRadio  *widget.RadioGroup
	runButton    *widget.Button
	cancelButton *widget.Button
	progressBar  *widget.ProgressBar
	statusLabel  *widget.Label
	container    *fyne.Container

	onRun    func()
	onCancel func()
	onConfig func(sensorID string, bands []string, method workflow.Method)
}

func NewWorkflowPanel(cfg workflow.WorkflowConfig, logger *logrus.Logger) *WorkflowPanel {
	panel := &WorkflowPanel{
		logger:      logger,
		progressBar: widget.NewProgressBar(),
		statusLabel: widget.NewLabel("Ready"),
	}

	panel.sensorSelect = widget.NewSelect(sensors.IDs(), func(string) { panel.pushConfig() })
	panel.sensorSelect.SetSelected(cfg.Sensor.ID)

	panel.bandsEntry = widget.NewEntry()
	panel.bandsEntry.SetText(joinBands(cfg.Sensor))
	panel.bandsEntry.OnSubmitted = func(string) { panel.pushConfig() }

	panel.methodRadio = widget.NewRadioGroup([]string{"lut", "direct"}, func(string) { panel.pushConfig() })
	panel.methodRadio.SetSelected(cfg.Method.String())

	panel.runButton = widget.NewButton("Run", func() {
		if panel.onRun != nil {
			panel.onRun()
		}
	})
	panel.cancelButton = widget.NewButton("Cancel", func() {
		if panel.onCancel != nil {
			panel.onCancel()
		}
	})
	panel.cancelButton.Disable()

	form := widget.NewForm(
		widget.NewFormItem("Sensor", panel.sensorSelect),
		widget.NewFormItem("Bands", panel.bandsEntry),
		widget.NewFormItem("Method", panel.methodRadio),
	)

	panel.container = container.NewVBox(
		form,
		container.NewGridWithColumns(2, panel.runButton, panel.cancelButton),
		panel.progressBar,
		panel.statusLabel,
	)
	return panel
}

// SetCallbacks wires run, cancel and config-change handlers.
func (p *WorkflowPanel) SetCallbacks(
	onRun func(),
	onCancel func(),
	onConfig func(sensorID string, bands []string, method workflow.Method),
) {
	p.onRun = onRun
	p.onCancel = onCancel
	p.onConfig = onConfig
}

func (p *WorkflowPanel) pushConfig() {
	if p.onConfig == nil {
		return
	}
	method, err := workflow.ParseMethod(p.methodRadio.Selected)
	if err != nil {
		method = workflow.MethodLUT
	}
	p.onConfig(p.sensorSelect.Selected, splitBands(p.bandsEntry.Text), method)
}

// SetRunning toggles the controls for an active run.
func (p *WorkflowPanel) SetRunning(running bool) {
	if running {
		p.runButton.Disable()
		p.cancelButton.Enable()
		p.progressBar.SetValue(0)
		p.statusLabel.SetText("Running...")
	} else {
		p.runButton.Enable()
		p.cancelButton.Disable()
	}
}

// SetProgress updates the progress bar with completed/total units.
func (p *WorkflowPanel) SetProgress(completed, total int) {
	if total > 0 {
		p.progressBar.SetValue(float64(completed) / float64(total))
	}
	p.statusLabel.SetText(fmt.Sprintf("%d / %d units", completed, total))
}

// SetStatus replaces the status line.
func (p *WorkflowPanel) SetStatus(status string) {
	p.statusLabel.SetText(status)
}

func (p *WorkflowPanel) GetContainer() *fyne.Container {
	return p.container
}

func joinBands(s sensors.Sensor) string {
	out := ""
	for i, b := range s.Bands {
		if i > 0 {
			out += ","
		}
		out += b.Name
	}
	return out
}

func splitBands(s string) []string {
	var out []string
	current := ""
	for _, r := range s {
		if r == ',' {
			if current != "" {
				out = append(out, current)
				current = ""
			}
			continue
		}
		if r != ' ' {
			current += string(r)
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

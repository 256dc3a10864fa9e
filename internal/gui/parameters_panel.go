package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"shallow-water-workbench/internal/workflow"
)

// parameterRow is the editable widget set for one model parameter.
type parameterRow struct {
	name       string
	modeSelect *widget.Select
	fixedEntry *widget.Entry
	minEntry   *widget.Entry
	maxEntry   *widget.Entry
	gridEntry  *widget.Entry
	fixedBox   *fyne.Container
	rangeBox   *fyne.Container
}

// ParametersPanel edits the per-parameter Fixed/Range configuration and
// shows the live LUT size estimate.
type ParametersPanel struct {
	logger *logrus.Logger

	rows          []*parameterRow
	estimateLabel *widget.Label
	applyButton   *widget.Button
	container     *fyne.Container

	onApply func(specs []workflow.ParameterSpec)
}

func NewParametersPanel(cfg workflow.WorkflowConfig, logger *logrus.Logger) *ParametersPanel {
	panel := &ParametersPanel{
		logger:        logger,
		estimateLabel: widget.NewLabel("LUT size: -"),
	}

	form := container.NewVBox()
	for _, p := range cfg.Params {
		row := panel.buildRow(p)
		panel.rows = append(panel.rows, row)
		form.Add(widget.NewLabel(row.name))
		form.Add(container.NewVBox(row.modeSelect, row.fixedBox, row.rangeBox))
		form.Add(widget.NewSeparator())
	}

	panel.applyButton = widget.NewButton("Apply Parameters", func() {
		panel.apply()
	})

	panel.container = container.NewVBox(
		form,
		panel.applyButton,
		panel.estimateLabel,
	)
	return panel
}

func (p *ParametersPanel) buildRow(spec workflow.ParameterSpec) *parameterRow {
	row := &parameterRow{
		name:       spec.Name,
		fixedEntry: widget.NewEntry(),
		minEntry:   widget.NewEntry(),
		maxEntry:   widget.NewEntry(),
		gridEntry:  widget.NewEntry(),
	}

	row.fixedEntry.SetPlaceHolder("value")
	row.minEntry.SetPlaceHolder("min")
	row.maxEntry.SetPlaceHolder("max")
	row.gridEntry.SetPlaceHolder("grid")

	switch spec.Mode {
	case workflow.ModeRange:
		row.minEntry.SetText(formatFloat(spec.Min))
		row.maxEntry.SetText(formatFloat(spec.Max))
		row.gridEntry.SetText(strconv.Itoa(spec.GridSize))
	default:
		row.fixedEntry.SetText(formatFloat(spec.Value))
	}

	row.fixedBox = container.NewVBox(row.fixedEntry)
	row.rangeBox = container.NewGridWithColumns(3, row.minEntry, row.maxEntry, row.gridEntry)

	row.modeSelect = widget.NewSelect([]string{"fixed", "range"}, func(mode string) {
		if mode == "range" {
			row.fixedBox.Hide()
			row.rangeBox.Show()
		} else {
			row.rangeBox.Hide()
			row.fixedBox.Show()
		}
	})
	row.modeSelect.SetSelected(spec.Mode.String())

	return row
}

// SetOnApply registers the callback invoked with the parsed parameter specs.
func (p *ParametersPanel) SetOnApply(fn func(specs []workflow.ParameterSpec)) {
	p.onApply = fn
}

// SetEstimate updates the LUT size label.
func (p *ParametersPanel) SetEstimate(cells int64) {
	p.estimateLabel.SetText(fmt.Sprintf("LUT size: %d cells", cells))
}

func (p *ParametersPanel) apply() {
	specs := make([]workflow.ParameterSpec, 0, len(p.rows))
	for _, row := range p.rows {
		spec, err := row.parse()
		if err != nil {
			p.logger.WithError(err).WithField("parameter", row.name).Warn("Rejecting parameter edit")
			p.estimateLabel.SetText(fmt.Sprintf("invalid %s: %v", row.name, err))
			return
		}
		specs = append(specs, spec)
	}
	if p.onApply != nil {
		p.onApply(specs)
	}
}

func (row *parameterRow) parse() (workflow.ParameterSpec, error) {
	if row.modeSelect.Selected == "range" {
		min, err := strconv.ParseFloat(row.minEntry.Text, 64)
		if err != nil {
			return workflow.ParameterSpec{}, fmt.Errorf("bad minimum %q", row.minEntry.Text)
		}
		max, err := strconv.ParseFloat(row.maxEntry.Text, 64)
		if err != nil {
			return workflow.ParameterSpec{}, fmt.Errorf("bad maximum %q", row.maxEntry.Text)
		}
		grid, err := strconv.Atoi(row.gridEntry.Text)
		if err != nil {
			return workflow.ParameterSpec{}, fmt.Errorf("bad grid size %q", row.gridEntry.Text)
		}
		return workflow.Range(row.name, min, max, grid), nil
	}

	value, err := strconv.ParseFloat(row.fixedEntry.Text, 64)
	if err != nil {
		return workflow.ParameterSpec{}, fmt.Errorf("bad value %q", row.fixedEntry.Text)
	}
	return workflow.Fixed(row.name, value), nil
}

func (p *ParametersPanel) GetContainer() *fyne.Container {
	return p.container
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

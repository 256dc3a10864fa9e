package gui

import (
	"image"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"shallow-water-workbench/internal/workflow"
)

// ResultsPanel renders the inverted parameter maps as grayscale previews.
type ResultsPanel struct {
	images    map[string]*canvas.Image
	container *fyne.Container
}

func NewResultsPanel() *ResultsPanel {
	panel := &ResultsPanel{
		images: make(map[string]*canvas.Image, len(workflow.OutputParameters)),
	}

	grid := container.NewGridWithColumns(2)
	for _, name := range workflow.OutputParameters {
		img := canvas.NewImageFromImage(image.NewGray(image.Rect(0, 0, 1, 1)))
		img.FillMode = canvas.ImageFillContain
		img.SetMinSize(fyne.NewSize(220, 180))
		panel.images[name] = img
		grid.Add(widget.NewCard(name, "", img))
	}

	panel.container = grid
	return panel
}

// Update re-renders every parameter map from a completed result.
func (p *ResultsPanel) Update(result *workflow.ProcessingResult) {
	if result == nil {
		return
	}
	for _, name := range workflow.OutputParameters {
		grid, ok := result.Maps[name]
		if !ok {
			continue
		}
		p.images[name].Image = renderGrayscale(grid)
		p.images[name].Refresh()
	}
}

// Clear resets all previews.
func (p *ResultsPanel) Clear() {
	for _, img := range p.images {
		img.Image = image.NewGray(image.Rect(0, 0, 1, 1))
		img.Refresh()
	}
}

func (p *ResultsPanel) GetContainer() *fyne.Container {
	return p.container
}

// renderGrayscale linearly stretches the finite values of a map to [0,255].
// NaN pixels (masked or failed) render black.
func renderGrayscale(grid [][]float64) image.Image {
	height := len(grid)
	width := 0
	if height > 0 {
		width = len(grid[0])
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, row := range grid {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	if min >= max {
		return out
	}
	scale := 255.0 / (max - min)
	for y, row := range grid {
		for x, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			out.SetGray(x, y, color.Gray{Y: uint8((v - min) * scale)})
		}
	}
	return out
}

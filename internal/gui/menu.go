// Menu handler for application actions
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"github.com/sirupsen/logrus"
)

// MenuHandler handles menu actions and their file dialogs.
type MenuHandler struct {
	window fyne.Window
	logger *logrus.Logger

	onImageOpened func(path string)
	onExport      func(dir string)
}

func NewMenuHandler(window fyne.Window, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{window: window, logger: logger}
}

// SetCallbacks wires image-open and result-export handlers.
func (mh *MenuHandler) SetCallbacks(onImageOpened func(string), onExport func(string)) {
	mh.onImageOpened = onImageOpened
	mh.onExport = onExport
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mh.openImage),
		fyne.NewMenuItem("Export Results...", mh.exportResults),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.window.Close()
		}),
	)
	return fyne.NewMainMenu(fileMenu)
}

func (mh *MenuHandler) openImage() {
	mh.logger.Info("Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mh.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		if mh.onImageOpened != nil {
			mh.onImageOpened(path)
		}
	}, mh.window)
	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".tif", ".tiff", ".img", ".png"}))
	fileDialog.Show()
}

func (mh *MenuHandler) exportResults() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, mh.window)
			return
		}
		if uri == nil {
			return
		}
		if mh.onExport != nil {
			mh.onExport(uri.Path())
		}
	}, mh.window)
}

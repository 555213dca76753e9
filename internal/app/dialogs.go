package app

import (
	"context"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var jsonFilter = []wailsRuntime.FileFilter{{DisplayName: "JSON (*.json)", Pattern: "*.json"}}

func saveDialog(ctx context.Context, defaultName string) (string, error) {
	return wailsRuntime.SaveFileDialog(ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Export theme",
		DefaultFilename: defaultName,
		Filters:         jsonFilter,
	})
}

func openDialog(ctx context.Context) (string, error) {
	return wailsRuntime.OpenFileDialog(ctx, wailsRuntime.OpenDialogOptions{
		Title:   "Import theme",
		Filters: jsonFilter,
	})
}

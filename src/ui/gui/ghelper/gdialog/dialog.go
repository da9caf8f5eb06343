package gdialog

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sqweek/dialog"
)

type Result struct {
	Path string
	Name string // binary name without extension
}

// ErrCancelled is returned when the user closes the dialog.
var ErrCancelled = dialog.ErrCancelled

func OpenEngine(title string) (Result, error) {
	path, err := dialog.File().Title(title).Load()
	if err != nil {
		return Result{}, err
	}
	if path == "" {
		return Result{}, errors.New("no file selected")
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return Result{Path: path, Name: name}, nil
}

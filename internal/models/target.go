package models

import (
	"path/filepath"
)

const ImageExt = ".jpg"

// SaveTarget is where a captured frame goes. An empty Directory means no
// location has been chosen yet.
type SaveTarget struct {
	Directory string
	Name      string
}

func (t SaveTarget) HasDirectory() bool {
	return t.Directory != ""
}

func (t SaveTarget) HasName() bool {
	return t.Name != ""
}

// Path is the output file. Name is used verbatim, separators included.
func (t SaveTarget) Path() string {
	return filepath.Join(t.Directory, t.Name+ImageExt)
}

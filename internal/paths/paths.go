// Package paths derives every filesystem location recordkeeper uses from a
// single base directory. It performs no I/O.
package paths

import (
	"path/filepath"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Default directory and file names, relative to the base directory.
const (
	DatabaseDirName  = "database"
	ResourcesDirName = "resources"
	IconsDirName     = "icons"
	ImagesDirName    = "images"
	ModulesDirName   = "modules"
	TemplatesDirName = "templates"
	StateDirName     = ".recordkeeper"
	JournalFileName  = "journal.db"

	// TableExt is the file extension of dataset files.
	TableExt = ".table"

	// MenuImage is the menu illustration, relative to the images directory.
	MenuImage = "licitacao360.png"
)

// Location pairs a dataset with the absolute path of its table file.
type Location struct {
	Dataset core.DatasetID
	Path    string
}

// Registry computes canonical paths below a base directory.
// A Registry is immutable and safe for concurrent use.
type Registry struct {
	base string
}

// New returns a Registry rooted at base. A relative base is made absolute
// against the working directory; a base that does not exist is not rejected.
func New(base string) *Registry {
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return &Registry{base: filepath.Clean(base)}
}

// BaseDir returns the base directory.
func (r *Registry) BaseDir() string { return r.base }

// DatabaseDir returns the directory holding dataset files.
func (r *Registry) DatabaseDir() string {
	return filepath.Join(r.base, DatabaseDirName)
}

// ResourcesDir returns the static resources directory.
func (r *Registry) ResourcesDir() string {
	return filepath.Join(r.base, ResourcesDirName)
}

// IconsDir returns the icons directory.
func (r *Registry) IconsDir() string {
	return filepath.Join(r.ResourcesDir(), IconsDirName)
}

// ImagesDir returns the images directory.
func (r *Registry) ImagesDir() string {
	return filepath.Join(r.ResourcesDir(), ImagesDirName)
}

// IconPath returns the path of a named icon file.
func (r *Registry) IconPath(name string) string {
	return filepath.Join(r.IconsDir(), name)
}

// ImagePath returns the path of a named image file.
func (r *Registry) ImagePath(name string) string {
	return filepath.Join(r.ImagesDir(), name)
}

// MenuImagePath returns the path of the menu illustration.
func (r *Registry) MenuImagePath() string {
	return r.ImagePath(MenuImage)
}

// TemplatesDir returns the template directory of the module that owns the dataset.
func (r *Registry) TemplatesDir(id core.DatasetID) string {
	return filepath.Join(r.base, ModulesDirName, id.Name(), TemplatesDirName)
}

// StateDir returns the directory for recordkeeper's own bookkeeping files.
func (r *Registry) StateDir() string {
	return filepath.Join(r.base, StateDirName)
}

// JournalPath returns the default location of the activity journal.
func (r *Registry) JournalPath() string {
	return filepath.Join(r.StateDir(), JournalFileName)
}

// DatasetLocation returns the table file of a dataset. It panics for an
// undeclared dataset.
func (r *Registry) DatasetLocation(id core.DatasetID) string {
	return filepath.Join(r.DatabaseDir(), id.Name()+TableExt)
}

// Locations returns one Location per dataset, in enumeration order.
func (r *Registry) Locations() []Location {
	ids := core.AllDatasets()
	locs := make([]Location, len(ids))
	for i, id := range ids {
		locs[i] = Location{Dataset: id, Path: r.DatasetLocation(id)}
	}
	return locs
}

// DatasetForPath reports which dataset owns the given table file, if any.
func (r *Registry) DatasetForPath(path string) (core.DatasetID, bool) {
	clean := filepath.Clean(path)
	for _, loc := range r.Locations() {
		if loc.Path == clean {
			return loc.Dataset, true
		}
	}
	return 0, false
}

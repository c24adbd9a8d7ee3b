package tablefile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// filePerm is the mode of newly written table files.
const filePerm = 0o644

// Read loads the table stored at path.
func Read(path string, opts ...Option) (*core.Table, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, err
	}
	return Decode(data, opts...)
}

// WriteAtomic replaces the file at path with the encoding of t. The table is
// encoded in full before anything touches disk, then written to a temporary
// file in the same directory and renamed into place. On failure the previous
// file is untouched and the temporary file is removed. The parent directory
// must already exist.
//
// Once the rename succeeds the write is reported as done. A failure to sync
// the directory afterwards is logged, not returned: the new file is already
// in place.
func WriteAtomic(path string, t *core.Table, opts ...Option) error {
	data, err := EncodeBytes(t, opts...)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true

	if err := syncDir(dir); err != nil {
		buildOptions(opts).logger.Warn("failed to sync directory after write", "path", path, "error", err)
	}
	return nil
}

// syncDir is a variable so tests can simulate a failing directory sync.
var syncDir = func(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

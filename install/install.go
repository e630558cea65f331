package install

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProReality/ClassiCubeLauncher/layout"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Test seams
var (
	rename = os.Rename
	remove = os.Remove
)

// Install moves newFile over target so that target is always either the old
// or the new content. newFile is consumed: it does not exist afterwards,
// whatever the outcome.
//
// The normal path is a single rename. When that fails, for example because
// newFile lives on another filesystem, the content is copied to target+".new"
// first and renamed from there. If even that rename is refused, target is
// deleted and target+".new" moved in its place. Between those two steps
// target is missing but target+".new" is complete, and Recover finishes the
// move on the next run.
func Install(newFile, target string) error {
	if err := syncFile(newFile); err != nil {
		_ = remove(newFile)
		return err
	}

	err := rename(newFile, target)
	if err == nil {
		syncDir(filepath.Dir(target))
		return nil
	}

	staged, err := stage(newFile, target)
	_ = remove(newFile)
	if err != nil {
		return err
	}

	if err := rename(staged, target); err == nil {
		syncDir(filepath.Dir(target))
		return nil
	}

	return replaceByDelete(staged, target)
}

// replaceByDelete is the last resort where rename cannot overwrite target
func replaceByDelete(staged, target string) error {
	if err := remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = remove(staged)
		return updates_api.IOError("remove previous artifact", target, err)
	}

	if err := rename(staged, target); err != nil {
		return updates_api.IOError("move new artifact", target,
			fmt.Errorf("%w, complete copy kept at %s", err, staged))
	}
	syncDir(filepath.Dir(target))
	return nil
}

// stage copies src into target+".new" via a temp file, so an existing
// target+".new" is always a complete copy
func stage(src, target string) (string, error) {
	staged := layout.NewFile(target)

	tmp, err := os.CreateTemp(filepath.Dir(target), layout.StagingPattern(target))
	if err != nil {
		return "", updates_api.IOError("create staging file", target, err)
	}

	if err := copyInto(tmp, src); err != nil {
		_ = tmp.Close()
		_ = remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = remove(tmp.Name())
		return "", updates_api.IOError("close staging file", tmp.Name(), err)
	}

	if err := rename(tmp.Name(), staged); err != nil {
		_ = remove(tmp.Name())
		return "", updates_api.IOError("stage new artifact", staged, err)
	}
	return staged, nil
}

func copyInto(dst *os.File, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return updates_api.IOError("open new artifact", src, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer in.Close()

	if _, err := io.Copy(dst, in); err != nil {
		return updates_api.IOError("copy new artifact", dst.Name(), err)
	}
	if err := dst.Sync(); err != nil {
		return updates_api.IOError("sync staging file", dst.Name(), err)
	}
	return nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return updates_api.IOError("open new artifact", path, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	if err := f.Sync(); err != nil {
		return updates_api.IOError("sync new artifact", path, err)
	}
	return nil
}

// syncDir makes the rename durable where the platform allows it
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// Recover completes an install interrupted between deleting target and
// moving target+".new" into place. It reports whether it moved a file.
// A target+".new" next to an existing target is stale and is removed.
func Recover(target string) (bool, error) {
	staged := layout.NewFile(target)
	if _, err := os.Stat(staged); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, updates_api.IOError("inspect staged artifact", staged, err)
	}

	if _, err := os.Stat(target); err == nil {
		if err := remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, updates_api.IOError("remove stale staged artifact", staged, err)
		}
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, updates_api.IOError("inspect artifact", target, err)
	}

	if err := rename(staged, target); err != nil {
		return false, updates_api.IOError("restore staged artifact", target, err)
	}
	syncDir(filepath.Dir(target))
	return true, nil
}

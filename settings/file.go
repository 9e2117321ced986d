package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

const maxFileSize = 10 << 20

// FromJSONFile reads and parses a JSON settings file
func FromJSONFile(path string) (*Data, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "Settings", "FromJSONFile", "stat file")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(fmt.Errorf("not a regular file: %s", path), "Settings", "FromJSONFile", "check file")
	}
	if info.Size() > maxFileSize {
		return nil, errors.WrapInvalid(fmt.Errorf("file too large: %d bytes", info.Size()), "Settings", "FromJSONFile", "check file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Settings", "FromJSONFile", "read file")
	}
	return FromJSON(string(data))
}

// SaveJSON writes the canonical JSON form to path through a temporary file
func (d *Data) SaveJSON(path string) error {
	return d.SaveJSONSafe(path, ".tmp", "")
}

// SaveJSONSafe writes to path+tmpExt first and renames it over path. When
// backupExt is set, the previous file is kept as path+backupExt.
func (d *Data) SaveJSONSafe(path, tmpExt, backupExt string) error {
	text, err := d.PrettyJSON()
	if err != nil {
		return err
	}
	if tmpExt == "" {
		tmpExt = ".tmp"
	}

	tmp := path + tmpExt
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "Settings", "SaveJSON", "create directory")
	}
	if err := os.WriteFile(tmp, []byte(text), 0o600); err != nil {
		return errors.Wrap(err, "Settings", "SaveJSON", "write temp file")
	}

	if backupExt != "" {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+backupExt); err != nil {
				_ = os.Remove(tmp)
				return errors.Wrap(err, "Settings", "SaveJSON", "keep backup")
			}
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "Settings", "SaveJSON", "replace file")
	}
	return nil
}

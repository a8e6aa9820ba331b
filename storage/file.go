package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ Area = (*FileArea)(nil)

// FileArea is a durable area persisted as a single JSON object on disk. Every write replaces
// the file through a temp file and rename so a crash never leaves a half written document.
type FileArea struct {
	path    string
	corrupt bool // the file on disk could not be decoded and is replaced on the next write
	lock    sync.Mutex
}

// NewFileArea returns an area stored at path. The parent directory is created on first write.
func NewFileArea(path string) *FileArea {
	return &FileArea{path: path}
}

// Path returns the backing file location.
func (f *FileArea) Path() string {
	return f.path
}

func (f *FileArea) Get(_ context.Context, key string) (string, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileArea) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileArea) Remove(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !f.corrupt {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileArea) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileArea.load] read")
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("Session file is unreadable, treating it as empty")
		f.corrupt = true
		return make(map[string]string), nil
	}
	f.corrupt = false
	return values, nil
}

func (f *FileArea) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileArea.save] encode")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileArea.save] mkdir")
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[FileArea.save] create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileArea.save] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileArea.save] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileArea.save] close")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrap(err, "[FileArea.save] rename")
	}
	f.corrupt = false
	return nil
}

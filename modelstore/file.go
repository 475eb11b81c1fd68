package modelstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// ModelExt is the file extension of stored models.
const ModelExt = ".model"

// FileStore keeps each model in <dir>/<name>.model.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create model directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name+ModelExt) }

// Save writes the model through a temporary file and renames it, so readers
// never see a partial model.
func (s *FileStore) Save(ctx context.Context, name string, model []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary model file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(model); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write model %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "write model %s", name)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return errors.Wrapf(err, "store model %s", name)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read model %s", name)
	}
	return b, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "delete model %s", name)
	}
	return nil
}

// List returns the stored names in lexical order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", s.dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ModelExt); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)

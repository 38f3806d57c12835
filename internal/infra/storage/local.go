package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalDisk struct {
	root string
}

func NewLocalDisk(root string) (*LocalDisk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage/local: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: mkdir %s: %w", abs, err)
	}
	return &LocalDisk{root: abs}, nil
}

// root の外を指すパスは拒否
func (d *LocalDisk) abs(path string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(path))
	if p != d.root && !strings.HasPrefix(p, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage/local: path escapes root: %s", path)
	}
	return p, nil
}

func (d *LocalDisk) Put(_ context.Context, path string, r io.Reader) error {
	p, err := d.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage/local: mkdir: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("storage/local: create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("storage/local: write %s: %w", path, err)
	}
	return nil
}

func (d *LocalDisk) Open(_ context.Context, path string) (io.ReadCloser, error) {
	p, err := d.abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: open %s: %w", path, err)
	}
	return f, nil
}

func (d *LocalDisk) Exists(_ context.Context, path string) (bool, error) {
	p, err := d.abs(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (d *LocalDisk) Delete(_ context.Context, path string) error {
	p, err := d.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", path, err)
	}
	return nil
}

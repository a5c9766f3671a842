package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage keeps uploaded videos under a local directory served by the
// app. It is used when no R2 bucket is configured.
type DiskStorage struct {
	Root    string
	BaseURL string
}

func NewDiskStorage(root, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DiskStorage) Upload(_ context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	destPath, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := SaveFile(fileHeader, destPath); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return d.BaseURL + "/" + filepath.ToSlash(key), nil
}

// path resolves key inside Root, refusing keys that escape it.
func (d *DiskStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.Root, clean), nil
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}

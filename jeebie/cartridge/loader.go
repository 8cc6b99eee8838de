package cartridge

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// ErrEmptyArchive is returned when an archive holds no files.
var ErrEmptyArchive = errors.New("archive contains no files")

// LoadFile reads a program image from disk. Images compressed with gzip, or
// stored as the first entry of a zip or 7z archive, are unpacked.
func LoadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip %s: %w", filename, err)
		}
		defer r.Close()
		return readAll(filename, r)
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening zip %s: %w", filename, err)
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("%s: %w", filename, ErrEmptyArchive)
		}
		f, err := zr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", zr.File[0].Name, filename, err)
		}
		defer f.Close()
		return readAll(filename, f)
	case ".7z":
		sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening 7z %s: %w", filename, err)
		}
		if len(sr.File) == 0 {
			return nil, fmt.Errorf("%s: %w", filename, ErrEmptyArchive)
		}
		f, err := sr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", sr.File[0].Name, filename, err)
		}
		defer f.Close()
		return readAll(filename, f)
	}

	return data, nil
}

func readAll(filename string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", filename, err)
	}
	return data, nil
}

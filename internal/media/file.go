package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is an upload candidate held in memory.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

func (f File) IsVideo() bool {
	return strings.HasPrefix(f.ContentType, "video/")
}

// NewFile sniffs the content type from data; the name is not trusted.
func NewFile(name string, data []byte) File {
	return File{
		Name:        filepath.Base(name),
		Data:        data,
		ContentType: detect(data),
	}
}

func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return NewFile(path, data), nil
}

// LoadFiles reads each path in order and stops at the first failure.
func LoadFiles(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func detect(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mtype := mimetype.Detect(data).String()
	if idx := strings.IndexByte(mtype, ';'); idx >= 0 {
		mtype = mtype[:idx]
	}
	return mtype
}

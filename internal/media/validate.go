package media

import (
	"errors"
	"fmt"
)

const (
	DefaultMaxFiles = 10
	DefaultMaxBytes = 20 << 20
)

var (
	ErrNoFiles         = errors.New("please add at least one screenshot")
	ErrTooManyFiles    = errors.New("too many files")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("only images and videos can be uploaded")
)

type Limits struct {
	MaxFiles int
	MaxBytes int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultMaxFiles
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	return l
}

// Validate checks a batch before anything is sent.
func Validate(files []File, limits Limits) error {
	limits = limits.withDefaults()
	if len(files) == 0 {
		return ErrNoFiles
	}
	if len(files) > limits.MaxFiles {
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyFiles, len(files), limits.MaxFiles)
	}
	for _, f := range files {
		switch {
		case f.Size() == 0:
			return fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
		case f.Size() > limits.MaxBytes:
			return fmt.Errorf("%s: %w (%d bytes, max %d)", f.Name, ErrFileTooLarge, f.Size(), limits.MaxBytes)
		case !f.IsImage() && !f.IsVideo():
			return fmt.Errorf("%s (%s): %w", f.Name, f.ContentType, ErrUnsupportedType)
		}
	}
	return nil
}

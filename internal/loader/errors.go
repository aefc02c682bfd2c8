package loader

import "errors"

var (
	// ErrFolderNotFound is returned by LoadFolder when the folder does not exist or is not a directory.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrUnsupportedFormat is returned by Parse for extensions with no parser.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrToolNotFound is returned when an external extraction tool is not installed.
	ErrToolNotFound = errors.New("external tool not found")

	// ErrInvalidEncoding is returned for text files that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

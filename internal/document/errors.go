package document

import "errors"

var (
	// ErrUnsupportedFormat is returned when a file extension is not recognised
	// or the operation does not apply to the detected format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileExists is returned by writers when the destination exists and
	// overwrite is false.
	ErrFileExists = errors.New("file already exists")

	// ErrInvalidDocx is returned when a .docx archive has no main document part.
	ErrInvalidDocx = errors.New("invalid docx: word/document.xml not found")
)

package fileutil

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// MaxTextSize is the largest file ReadText accepts (64 MB).
const MaxTextSize = 64 << 20

// ReadText reads path as a UTF-8 text document. Missing files yield a
// NotFoundError; oversized or binary files a ValidationError.
func ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &errors.NotFoundError{Resource: "file", ID: path, Err: err}
		}
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextSize+1))
	if err != nil {
		return "", errors.NewIO("read", path, err)
	}
	if len(data) > MaxTextSize {
		return "", errors.NewValidation(path, "file too large")
	}
	if !isText(data) {
		return "", errors.NewValidation(path, "not a UTF-8 text file")
	}
	return string(data), nil
}

// isText reports whether data is valid UTF-8 without NUL bytes.
func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

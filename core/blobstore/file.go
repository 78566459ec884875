package blobstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/internal/fileutil"
)

// checksumPrefix starts the header line of a blob file.
const checksumPrefix = "blake3:"

// File stores each blob as <dir>/<name>.json. The first line holds the
// BLAKE3 checksum of the payload that follows it. Writes go through a temp
// file and a rename (fileutil.WriteAtomic), so a crash leaves either the old or the new blob.
type File struct {
	dir string
}

// NewFile creates a File store rooted at dir, creating dir if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("create directory", dir, err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the root directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) pathFor(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errors.NewValidation("blob name", "must be a plain file name")
	}
	return filepath.Join(f.dir, name+".json"), nil
}

// LoadBlob reads and verifies the blob saved under name.
func (f *File) LoadBlob(name string) ([]byte, error) {
	path, err := f.pathFor(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("blob", name)
		}
		return nil, errors.NewIO("read", path, err)
	}

	header, payload, ok := bytes.Cut(raw, []byte("\n"))
	if !ok || !bytes.HasPrefix(header, []byte(checksumPrefix)) {
		return nil, errors.NewParse("blob", path, "missing checksum header")
	}
	want := string(bytes.TrimPrefix(header, []byte(checksumPrefix)))
	if got := Checksum(payload); got != want {
		return nil, &errors.IntegrityError{Name: name, Expected: want, Actual: got}
	}
	return payload, nil
}

// SaveBlob atomically replaces the blob saved under name.
func (f *File) SaveBlob(name string, data []byte) error {
	path, err := f.pathFor(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(checksumPrefix) + 65 + len(data))
	buf.WriteString(checksumPrefix)
	buf.WriteString(Checksum(data))
	buf.WriteByte('\n')
	buf.Write(data)

	return fileutil.WriteAtomic(path, buf.Bytes(), 0644)
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}

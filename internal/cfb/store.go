// Package cfb defines the narrow storage interface a package needs from
// a Compound File Binary container. Parsing and writing the actual CFB
// sector/FAT/directory format is out of scope: this
// package only specifies the contract and ships an in-memory reference
// implementation good enough for tests and for round-tripping a package
// without ever touching a real .msi file on disk.
package cfb

import (
	"errors"
	"io"
)

// ErrNotExist is returned by Store methods when a named stream or
// storage does not exist.
var ErrNotExist = errors.New("cfb: stream or storage does not exist")

// ErrExist is returned by Rename when the new name is already taken.
var ErrExist = errors.New("cfb: stream or storage already exists")

// Store is the storage contract a package needs from a CFB container:
// enumerate entries, read/write whole streams by name, rename and
// remove entries, and carry the root storage CLSID MSI uses to
// distinguish package/patch/transform files.
type Store interface {
	// Streams lists the names of every stream directly inside storage
	// ("" for the root storage).
	Streams(storage string) ([]string, error)

	// Storages lists the names of every substorage directly inside
	// storage ("" for the root storage).
	Storages(storage string) ([]string, error)

	// ReadStream returns the complete contents of the named stream.
	ReadStream(name string) ([]byte, error)

	// WriteStream replaces (or creates) the named stream with data.
	WriteStream(name string, data []byte) error

	// RemoveStream deletes the named stream.
	RemoveStream(name string) error

	// Rename changes a stream's or storage's name in place.
	Rename(oldName, newName string) error

	// CLSID returns the root storage's class ID, the 16-byte GUID MSI
	// uses to tell package, patch, and transform files apart.
	CLSID() [16]byte

	// SetCLSID sets the root storage's class ID.
	SetCLSID(clsid [16]byte)

	// Close flushes and releases any underlying resource.
	Close() error
}

// StreamReader is implemented by Stores that can hand back a stream as
// an io.Reader rather than buffering it whole; optional, checked with a
// type assertion by callers that want to stream large tables.
type StreamReader interface {
	OpenStream(name string) (io.ReadCloser, error)
}

// Package media stores the files cards reference from their fields (images,
// audio) and sweeps out files no note uses anymore.
package media

import "time"

// FileMeta describes one stored media file.
type FileMeta struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for media file operations. Names are plain file
// names; the provider owns the directory layout.
type Provider interface {
	// List returns metadata for every stored media file.
	List() ([]FileMeta, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically stores content under name.
	Write(name string, content []byte) error
	// Delete removes the named file.
	Delete(name string) error
}

package mem

import "errors"

var (
	// ErrSnapshotCorrupt indicates the snapshot file is malformed.
	ErrSnapshotCorrupt = errors.New("mem: snapshot file corrupt")
	// ErrUnsupportedMeta indicates a metadata value type the snapshot codec cannot encode.
	ErrUnsupportedMeta = errors.New("mem: unsupported metadata type")
)

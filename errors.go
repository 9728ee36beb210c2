package parcel

import (
	"errors"

	"github.com/burlindw/parcel/zipfile"
)

// ErrConsumed is returned when Build is called on an already-built request.
var ErrConsumed = errors.New("parcel: archive request already built")

// Errors re-exported from zipfile.
var (
	// ErrNameTooLong is returned when an in-archive filename exceeds the
	// 16-bit length field of the zip headers.
	ErrNameTooLong = zipfile.ErrNameTooLong

	// ErrTimestampRange is returned when a file's modification time cannot
	// be represented as a DOS timestamp.
	ErrTimestampRange = zipfile.ErrTimestampRange
)

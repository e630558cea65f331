package unpack_api

import (
	"fmt"
	"io"
)

// StreamDecoder is a compression codec selected by a URL suffix
type StreamDecoder interface {
	// Name is used in logs and errors, e.g. "lzma"
	Name() string
	// Suffix is the URL suffix that selects this decoder, e.g. ".lzma"
	Suffix() string
	// NewReader wraps compressed input. Reading the result yields the decoded bytes;
	// Close releases decoder state but never closes r.
	NewReader(r io.Reader) (io.ReadCloser, error)
	// SelfTest decodes a known-valid payload and fails when the codec is unusable
	SelfTest() error
}

// Repacker turns the compact archive representation into a packaged-file container
type Repacker interface {
	Name() string
	// Suffix is the URL suffix of the compact representation, e.g. ".pack"
	Suffix() string
	Repack(r io.Reader, w io.Writer) error
}

// ProcessedDownload describes the file the decode pipeline produced
type ProcessedDownload interface {
	fmt.Stringer

	// FinalFile is the path ready to be installed
	FinalFile() string
	// Stages lists the codecs applied in order, empty for pass-through
	Stages() []string
	SourceURL() string
}

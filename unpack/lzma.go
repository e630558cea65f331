package unpack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzmaSelfTestPayload is the smallest stream the classic .lzma format allows:
// properties 0x5d, a 256 KiB dictionary, unknown size, then the range coder
// init bytes and the encoded end marker.
var lzmaSelfTestPayload = []byte{
	0x5d, 0x00, 0x00, 0x04, 0x00,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0x00, 0x05, 0x41, 0xfb, 0xff, 0xff, 0xff, 0xe0, 0x00, 0x00, 0x00,
}

// LZMADecoder decodes the classic LZMA-alone format (.lzma)
type LZMADecoder struct{}

func NewLZMADecoder() *LZMADecoder {
	return &LZMADecoder{}
}

func (d *LZMADecoder) Name() string   { return "lzma" }
func (d *LZMADecoder) Suffix() string { return ".lzma" }

func (d *LZMADecoder) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := lzma.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create lzma reader: %w", err)
	}
	return io.NopCloser(reader), nil
}

// SelfTest only builds a reader around the payload, which parses the header
// and primes the range decoder.
func (d *LZMADecoder) SelfTest() error {
	reader, err := d.NewReader(bytes.NewReader(lzmaSelfTestPayload))
	if err != nil {
		return err
	}
	return reader.Close()
}

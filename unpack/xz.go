package unpack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

type XZDecoder struct{}

// NewXZDecoder decodes .xz containers
func NewXZDecoder() *XZDecoder {
	return &XZDecoder{}
}

func (d *XZDecoder) Name() string   { return "xz" }
func (d *XZDecoder) Suffix() string { return ".xz" }

func (d *XZDecoder) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	return io.NopCloser(reader), nil
}

// SelfTest compresses a short probe and expects to read it back unchanged
func (d *XZDecoder) SelfTest() error {
	probe := []byte("classicube")

	var compressed bytes.Buffer
	writer, err := xz.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := writer.Write(probe); err != nil {
		return fmt.Errorf("failed to compress probe: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish probe: %w", err)
	}

	reader, err := d.NewReader(&compressed)
	if err != nil {
		return err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer reader.Close()

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to decode probe: %w", err)
	}
	if !bytes.Equal(decoded, probe) {
		return fmt.Errorf("decoded probe differs: %q", decoded)
	}
	return nil
}

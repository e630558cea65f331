package unpack

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

var errNoEntries = errors.New("archive has no entries")

// TarJarRepacker reads the compact archive form, an uncompressed tar stream,
// and writes it out as a jar with deflated entries. Entry order, names, modes
// and modification times are taken from the tar headers, so the same input
// always yields the same bytes.
type TarJarRepacker struct{}

func NewTarJarRepacker() *TarJarRepacker {
	return &TarJarRepacker{}
}

func (p *TarJarRepacker) Name() string   { return "pack" }
func (p *TarJarRepacker) Suffix() string { return ".pack" }

func (p *TarJarRepacker) Repack(r io.Reader, w io.Writer) error {
	tr := tar.NewReader(r)
	zw := zip.NewWriter(w)

	entries := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name, err := entryName(hdr)
		if err != nil {
			return err
		}

		fh := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: hdr.ModTime.UTC(),
		}
		if hdr.Typeflag == tar.TypeDir {
			fh.Method = zip.Store
		}
		fh.SetMode(hdr.FileInfo().Mode())

		entry, err := zw.CreateHeader(fh)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}

		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.Copy(entry, tr); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
		}
		entries++
	}

	if entries == 0 {
		return errNoEntries
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish jar: %w", err)
	}
	return nil
}

// entryName validates a tar entry and returns its jar name
func entryName(hdr *tar.Header) (string, error) {
	switch hdr.Typeflag {
	case tar.TypeReg, tar.TypeDir:
	default:
		return "", fmt.Errorf("unsupported entry type %q for %s", hdr.Typeflag, hdr.Name)
	}

	raw := strings.ReplaceAll(hdr.Name, "\\", "/")
	if raw == "" || strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("unsafe entry name %q", hdr.Name)
	}

	name := path.Clean(raw)
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("unsafe entry name %q", hdr.Name)
	}

	if hdr.Typeflag == tar.TypeDir {
		name += "/"
	}
	return name, nil
}

package unpack

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ProReality/ClassiCubeLauncher/layout"
	"github.com/ProReality/ClassiCubeLauncher/unpack_api"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

type processedDownload struct {
	finalFile string
	stages    []string
	sourceURL string
}

func (p *processedDownload) FinalFile() string { return p.finalFile }
func (p *processedDownload) Stages() []string  { return p.stages }
func (p *processedDownload) SourceURL() string { return p.sourceURL }

func (p *processedDownload) String() string {
	stages := "pass-through"
	if len(p.stages) > 0 {
		stages = strings.Join(p.stages, " -> ")
	}
	return fmt.Sprintf("ProcessedDownload{file: %s, stages: %s, source: %s}", p.finalFile, stages, p.sourceURL)
}

// Pipeline decodes a downloaded file according to the suffix of the URL it
// came from. The content is never sniffed.
type Pipeline struct {
	codecs *Codecs
	// unlinkWhileOpen removes a stage input as soon as the next stage has
	// read from it. Windows cannot delete open files, there the input is
	// removed once the stage is done.
	unlinkWhileOpen bool
}

func NewPipeline(codecs *Codecs) *Pipeline {
	return &Pipeline{
		codecs:          codecs,
		unlinkWhileOpen: runtime.GOOS != "windows",
	}
}

// Process takes ownership of downloadedFile. The returned FinalFile is either
// downloadedFile itself (no marker in sourceURL) or a fresh temp file next to
// it named after namePart. Every intermediate, and on failure every file the
// call owns, is removed before Process returns.
func (p *Pipeline) Process(ctx context.Context, downloadedFile, sourceURL, namePart string) (unpack_api.ProcessedDownload, error) {
	selected := p.codecs.planFor(urlPath(sourceURL))
	result := &processedDownload{
		finalFile: downloadedFile,
		stages:    selected.stages(),
		sourceURL: sourceURL,
	}

	dir := filepath.Dir(downloadedFile)
	current := downloadedFile

	if selected.decoder != nil {
		decoder, err := selected.decoder.ready()
		if err != nil {
			_ = os.Remove(current)
			return nil, err
		}

		next, err := p.runStage(ctx, decoder.Name(), current, dir, layout.DecompressedPattern(namePart), func(r io.Reader, w io.Writer) error {
			reader, err := decoder.NewReader(r)
			if err != nil {
				return err
			}
			//goland:noinspection GoUnhandledErrorResult
			defer reader.Close()

			_, err = io.Copy(w, reader)
			return err
		})
		if err != nil {
			return nil, err
		}
		current = next
	}

	if selected.repacker != nil {
		next, err := p.runStage(ctx, selected.repacker.Name(), current, dir, layout.UnpackedPattern(namePart), selected.repacker.Repack)
		if err != nil {
			return nil, err
		}
		current = next
	}

	result.finalFile = current
	return result, nil
}

// runStage streams input through transform into a new temp file. The input
// is always gone when runStage returns; the output exists only on success.
func (p *Pipeline) runStage(ctx context.Context, stage, input, dir, pattern string, transform func(io.Reader, io.Writer) error) (string, error) {
	//goland:noinspection GoUnhandledErrorResult
	defer os.Remove(input)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s stage not started: %w", stage, err)
	}

	in, err := os.Open(input)
	if err != nil {
		return "", updates_api.IOError("open "+stage+" input", input, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer in.Close()

	out, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", updates_api.IOError("create "+stage+" output", dir, err)
	}
	output := out.Name()

	source := &stageReader{ctx: ctx, r: in}
	if p.unlinkWhileOpen {
		source.onFirstRead = func() { _ = os.Remove(input) }
	}
	sink := &stageWriter{w: out}

	if err := transform(source, sink); err != nil {
		_ = out.Close()
		_ = os.Remove(output)

		switch {
		case ctx.Err() != nil:
			return "", fmt.Errorf("%s stage interrupted: %w", stage, ctx.Err())
		case sink.err != nil:
			return "", updates_api.IOError("write "+stage+" output", output, sink.err)
		case source.err != nil:
			return "", updates_api.IOError("read "+stage+" input", input, source.err)
		default:
			return "", updates_api.DecodeError(stage, input, err)
		}
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(output)
		return "", updates_api.IOError("sync "+stage+" output", output, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(output)
		return "", updates_api.IOError("close "+stage+" output", output, err)
	}
	return output, nil
}

// urlPath lowercases the path part of the URL so query strings do not hide the suffix
func urlPath(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Path == "" {
		return strings.ToLower(sourceURL)
	}
	return strings.ToLower(u.Path)
}

// stageReader records read failures and fires onFirstRead after the first successful read
type stageReader struct {
	ctx         context.Context
	r           io.Reader
	onFirstRead func()
	err         error
}

func (s *stageReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.r.Read(p)
	if n > 0 && s.onFirstRead != nil {
		s.onFirstRead()
		s.onFirstRead = nil
	}
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// stageWriter records the first write failure
type stageWriter struct {
	w   io.Writer
	err error
}

func (s *stageWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil && s.err == nil {
		s.err = err
	}
	return n, err
}

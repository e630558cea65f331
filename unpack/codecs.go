package unpack

import (
	"strings"
	"sync"

	"github.com/ProReality/ClassiCubeLauncher/unpack_api"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Codecs holds the decoders and the repacker used by the pipeline. Each
// decoder runs its self-test once, on first use, and the outcome is kept
// for the lifetime of the Codecs value.
type Codecs struct {
	decoders []*checkedDecoder
	repacker unpack_api.Repacker
}

type checkedDecoder struct {
	decoder  unpack_api.StreamDecoder
	selfTest func() error
}

func NewCodecs(repacker unpack_api.Repacker, decoders ...unpack_api.StreamDecoder) *Codecs {
	c := &Codecs{repacker: repacker}
	for _, d := range decoders {
		c.decoders = append(c.decoders, &checkedDecoder{
			decoder:  d,
			selfTest: sync.OnceValue(d.SelfTest),
		})
	}
	return c
}

// DefaultCodecs knows .lzma, .xz and .pack
func DefaultCodecs() *Codecs {
	return NewCodecs(NewTarJarRepacker(), NewLZMADecoder(), NewXZDecoder())
}

// ready returns the decoder after its self-test passed
func (d *checkedDecoder) ready() (unpack_api.StreamDecoder, error) {
	if err := d.selfTest(); err != nil {
		return nil, updates_api.ConfigError("self-test "+d.decoder.Name()+" decoder", "", err)
	}
	return d.decoder, nil
}

// Check runs every decoder self-test and returns the first failure
func (c *Codecs) Check() error {
	for _, d := range c.decoders {
		if _, err := d.ready(); err != nil {
			return err
		}
	}
	return nil
}

// Names lists the codecs in selection order, used for diagnostics
func (c *Codecs) Names() []string {
	var names []string
	for _, d := range c.decoders {
		names = append(names, d.decoder.Name())
	}
	if c.repacker != nil {
		names = append(names, c.repacker.Name())
	}
	return names
}

type plan struct {
	decoder  *checkedDecoder
	repacker unpack_api.Repacker
}

func (p plan) stages() []string {
	var stages []string
	if p.decoder != nil {
		stages = append(stages, p.decoder.decoder.Name())
	}
	if p.repacker != nil {
		stages = append(stages, p.repacker.Name())
	}
	return stages
}

// planFor picks the stages for a lowercase URL path. A two-stage marker
// wins over a compression marker, which wins over an archive marker.
func (c *Codecs) planFor(urlPath string) plan {
	if c.repacker != nil {
		for _, d := range c.decoders {
			if strings.HasSuffix(urlPath, c.repacker.Suffix()+d.decoder.Suffix()) {
				return plan{decoder: d, repacker: c.repacker}
			}
		}
	}
	for _, d := range c.decoders {
		if strings.HasSuffix(urlPath, d.decoder.Suffix()) {
			return plan{decoder: d}
		}
	}
	if c.repacker != nil && strings.HasSuffix(urlPath, c.repacker.Suffix()) {
		return plan{repacker: c.repacker}
	}
	return plan{}
}

package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ProReality/ClassiCubeLauncher/layout"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Receipt records what was installed. It is informational only, the update
// decision always hashes the artifact itself.
type Receipt struct {
	Digest      string    `yaml:"digest"`
	Algorithm   string    `yaml:"algorithm"`
	SourceURL   string    `yaml:"source_url"`
	Stages      []string  `yaml:"stages,omitempty"`
	Size        int64     `yaml:"size"`
	InstalledAt time.Time `yaml:"installed_at"`
}

func (r *Receipt) String() string {
	return fmt.Sprintf("Receipt{%s %s from %s at %s}", r.Algorithm, r.Digest, r.SourceURL, r.InstalledAt.Format(time.RFC3339))
}

// WriteReceipt stores the receipt next to target, replacing any previous one atomically
func WriteReceipt(target string, receipt *Receipt) error {
	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	path := layout.ReceiptFile(target)
	tmp, err := os.CreateTemp(filepath.Dir(path), layout.ReceiptPattern(target))
	if err != nil {
		return updates_api.IOError("create receipt", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return updates_api.IOError("write receipt", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return updates_api.IOError("close receipt", tmp.Name(), err)
	}

	if err := rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return updates_api.IOError("replace receipt", path, err)
	}
	return nil
}

// ReadReceipt returns nil without an error when no receipt was written yet
func ReadReceipt(target string) (*Receipt, error) {
	path := layout.ReceiptFile(target)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, updates_api.IOError("read receipt", path, err)
	}

	var receipt Receipt
	if err := yaml.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse receipt %s: %w", path, err)
	}
	return &receipt, nil
}

// RemoveReceipt drops a receipt that no longer describes the installed file
func RemoveReceipt(target string) error {
	path := layout.ReceiptFile(target)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return updates_api.IOError("remove receipt", path, err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/parser"
)

// ErrConfigExists is returned by WriteDefault when the file is already there
var ErrConfigExists = errors.New("configuration file already exists")

const header = "# updater.yaml - configuration of the ClassiCube client updater\n" +
	"# client.hash_url serves the checksum of client.download_url; the first\n" +
	"# characters of the response (32 for md5) are compared with the local file.\n" +
	"# A download URL ending with .lzma, .xz, .pack, .pack.lzma or .pack.xz is\n" +
	"# decoded before it is installed.\n\n"

// WriteDefault creates updater.yaml with the built-in settings.
// An existing file is only replaced when overwrite is set.
func WriteDefault(configPath string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
		}
	}

	yamlBytes, err := yaml.Marshal(defaultFile())
	if err != nil {
		return fmt.Errorf("failed to marshal default configuration: %w", err)
	}
	yamlBytes = []byte(header + string(yamlBytes))

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	if err := os.WriteFile(configPath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// SetValue replaces a single scalar, addressed by a dotted key such as
// "client.download_url", keeping the comments and layout of the file.
// The result must still be a valid configuration, otherwise the file is
// left unchanged.
func SetValue(configPath, key, value string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read existing configuration: %w", err)
	}

	file, err := parser.ParseBytes(data, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("failed to parse existing configuration: %w", err)
	}

	path, err := yaml.PathString("$." + strings.Trim(key, "."))
	if err != nil {
		return fmt.Errorf("invalid key %q: %w", key, err)
	}

	if _, err := path.FilterFile(file); err != nil {
		return fmt.Errorf("key %s is not present in %s: %w", key, configPath, err)
	}

	node, err := yaml.ValueToNode(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	if err := path.ReplaceWithNode(file, node); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}

	updated := []byte(file.String())
	if _, err := parse(updated); err != nil {
		return fmt.Errorf("refusing to write %s: %w", key, err)
	}

	if err := os.WriteFile(configPath, updated, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

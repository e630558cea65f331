package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ProReality/ClassiCubeLauncher/digest"
)

const (
	// FileName is looked up in the launcher directory when no explicit path is given
	FileName = "updater.yaml"

	DefaultDownloadURL = "http://www.classicube.net/static/client/client.jar"
	DefaultHashURL     = "http://www.classicube.net/static/client/client.jar.md5"
	DefaultFileName    = "client.jar"
	DefaultTimeout     = 30 * time.Second

	EnvelopeNone  = "none"
	EnvelopePKCS7 = "pkcs7"
)

// clientConfigImpl is the internal implementation of ClientConfig
type clientConfigImpl struct {
	FileNameV         string `yaml:"file_name"`
	DownloadURLV      string `yaml:"download_url"`
	HashURLV          string `yaml:"hash_url"`
	DigestV           string `yaml:"digest"`
	HashEnvelopeV     string `yaml:"hash_envelope"`
	HashSignatureURLV string `yaml:"hash_signature_url,omitempty"`

	algorithm digest.Algorithm
}

func (c *clientConfigImpl) Name() string             { return c.FileNameV }
func (c *clientConfigImpl) DownloadURL() string      { return c.DownloadURLV }
func (c *clientConfigImpl) HashURL() string          { return c.HashURLV }
func (c *clientConfigImpl) Digest() digest.Algorithm { return c.algorithm }
func (c *clientConfigImpl) HashEnvelope() string     { return c.HashEnvelopeV }
func (c *clientConfigImpl) HashSignatureURL() string { return c.HashSignatureURLV }

func (c *clientConfigImpl) String() string {
	return fmt.Sprintf("%s from %s (%s at %s)", c.FileNameV, c.DownloadURLV, c.algorithm, c.HashURLV)
}

// httpConfigImpl is the internal implementation of HTTPConfig
type httpConfigImpl struct {
	TimeoutV   time.Duration `yaml:"timeout"`
	UserAgentV string        `yaml:"user_agent,omitempty"`
}

func (h *httpConfigImpl) Timeout() time.Duration { return h.TimeoutV }
func (h *httpConfigImpl) UserAgent() string      { return h.UserAgentV }

// configFile is the on-disk layout of updater.yaml
type configFile struct {
	Client      *clientConfigImpl `yaml:"client"`
	HTTP        *httpConfigImpl   `yaml:"http,omitempty"`
	TrustedKeys []string          `yaml:"trusted_keys,omitempty"`
	LogLevel    string            `yaml:"log_level,omitempty"`
}

// configImpl is the internal implementation of Config
type configImpl struct {
	configPath string
	file       configFile
}

func (c *configImpl) ConfigPath() string    { return c.configPath }
func (c *configImpl) Client() ClientConfig  { return c.file.Client }
func (c *configImpl) HTTP() HTTPConfig      { return c.file.HTTP }
func (c *configImpl) TrustedKeys() []string { return c.file.TrustedKeys }
func (c *configImpl) LogLevel() string      { return c.file.LogLevel }

func (c *configImpl) String() string {
	source := c.configPath
	if source == "" {
		source = "built-in defaults"
	}
	return fmt.Sprintf("ConfigPath: %s, Client: %s", source, c.file.Client)
}

func defaultFile() configFile {
	return configFile{
		Client: &clientConfigImpl{
			FileNameV:     DefaultFileName,
			DownloadURLV:  DefaultDownloadURL,
			HashURLV:      DefaultHashURL,
			DigestV:       string(digest.MD5),
			HashEnvelopeV: EnvelopeNone,
		},
		HTTP: &httpConfigImpl{
			TimeoutV: DefaultTimeout,
		},
		LogLevel: "info",
	}
}

// Default returns the built-in configuration for the ClassiCube client
func Default() Config {
	file := defaultFile()
	file.Client.algorithm = digest.MD5
	return &configImpl{file: file}
}

// Loader resolves the configuration once and hands out the same result afterwards
type Loader struct {
	explicitPath string
	launcherDir  func() (string, error)

	once   sync.Once
	result Config
	err    error
}

// NewLoader creates a loader. explicitPath wins when set; otherwise
// updater.yaml is read from the launcher directory if it exists.
func NewLoader(explicitPath string, launcherDir func() (string, error)) *Loader {
	return &Loader{explicitPath: explicitPath, launcherDir: launcherDir}
}

func (l *Loader) Load() (Config, error) {
	l.once.Do(func() {
		l.result, l.err = l.resolve()
	})
	if l.err != nil {
		return nil, fmt.Errorf("failed to resolve config: %w", l.err)
	}
	return l.result, nil
}

func (l *Loader) resolve() (Config, error) {
	if l.explicitPath != "" {
		return ParseFile(l.explicitPath)
	}

	if l.launcherDir == nil {
		return Default(), nil
	}

	dir, err := l.launcherDir()
	if err != nil {
		return nil, err
	}

	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot access config file %s: %w", candidate, err)
	}
	return ParseFile(candidate)
}

// ParseFile reads updater.yaml; fields absent from the file keep their defaults
func ParseFile(configPath string) (Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	cfg.configPath = configPath
	return cfg, nil
}

// Parse decodes updater.yaml content on top of the defaults and validates it
func Parse(data []byte) (Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte) (*configImpl, error) {
	var file configFile
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&file)

	if err := validate(&file); err != nil {
		return nil, err
	}
	return &configImpl{file: file}, nil
}

// applyDefaults fills every field the file left empty. The decoder
// allocates fresh structs for the client and http sections, so defaults
// cannot be pre-populated before decoding.
func applyDefaults(file *configFile) {
	defaults := defaultFile()

	if file.Client == nil {
		file.Client = defaults.Client
	} else {
		c, d := file.Client, defaults.Client
		if c.FileNameV == "" {
			c.FileNameV = d.FileNameV
		}
		if c.DownloadURLV == "" {
			c.DownloadURLV = d.DownloadURLV
		}
		if c.HashURLV == "" {
			c.HashURLV = d.HashURLV
		}
		if c.DigestV == "" {
			c.DigestV = d.DigestV
		}
		if c.HashEnvelopeV == "" {
			c.HashEnvelopeV = d.HashEnvelopeV
		}
	}

	if file.HTTP == nil {
		file.HTTP = defaults.HTTP
	} else if file.HTTP.TimeoutV == 0 {
		file.HTTP.TimeoutV = defaults.HTTP.TimeoutV
	}

	if file.LogLevel == "" {
		file.LogLevel = defaults.LogLevel
	}
}

func validate(file *configFile) error {
	client := file.Client

	if strings.TrimSpace(client.FileNameV) == "" {
		return fmt.Errorf("client file_name is required")
	}
	if err := validateURL("download_url", client.DownloadURLV); err != nil {
		return err
	}
	if err := validateURL("hash_url", client.HashURLV); err != nil {
		return err
	}
	if client.HashSignatureURLV != "" {
		if err := validateURL("hash_signature_url", client.HashSignatureURLV); err != nil {
			return err
		}
		if len(file.TrustedKeys) == 0 {
			return fmt.Errorf("hash_signature_url requires at least one trusted_keys entry")
		}
	}

	alg, err := digest.ParseAlgorithm(client.DigestV)
	if err != nil {
		return err
	}
	client.algorithm = alg

	switch strings.ToLower(client.HashEnvelopeV) {
	case "", EnvelopeNone:
		client.HashEnvelopeV = EnvelopeNone
	case EnvelopePKCS7:
		client.HashEnvelopeV = EnvelopePKCS7
	default:
		return fmt.Errorf("unsupported hash_envelope: %q", client.HashEnvelopeV)
	}

	if file.HTTP.TimeoutV < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("client %s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("client %s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("client %s must be an http or https URL, got %q", field, raw)
	}
	return nil
}

package config

import (
	"time"

	"github.com/ProReality/ClassiCubeLauncher/digest"
	"github.com/ProReality/ClassiCubeLauncher/feed_api"
)

// Config represents the updater configuration interface
type Config interface {
	// ConfigPath returns the file the configuration was read from, empty for built-in defaults
	ConfigPath() string

	// Client returns the managed artifact configuration
	Client() ClientConfig

	// HTTP returns the transport settings
	HTTP() HTTPConfig

	// TrustedKeys returns SSH authorized-key lines accepted for hash signatures
	TrustedKeys() []string

	// LogLevel returns the configured log level name
	LogLevel() string
}

// ClientConfig describes the artifact, where it is published and how its checksum is served
type ClientConfig interface {
	feed_api.RemoteArtifact

	// Digest returns the hash algorithm of the remote checksum
	Digest() digest.Algorithm
	// HashEnvelope is either "none" or "pkcs7"
	HashEnvelope() string
	// HashSignatureURL is optional; when set the checksum body must carry a trusted SSH signature
	HashSignatureURL() string
}

// HTTPConfig represents the transport settings
type HTTPConfig interface {
	// Timeout bounds the checksum request
	Timeout() time.Duration
	UserAgent() string
}

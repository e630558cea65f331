package feed_api

import "fmt"

// RemoteArtifact describes where an artifact and its checksum are published.
// Both URLs are fixed configuration; nothing here is negotiated at runtime.
type RemoteArtifact interface {
	fmt.Stringer

	// Name is the local file name of the installed artifact, e.g. client.jar
	Name() string
	DownloadURL() string
	HashURL() string
}

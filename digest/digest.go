package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// chunkSize is the read buffer used while streaming a file through the hash
const chunkSize = 64 * 1024

// Algorithm names the hash function shared with the remote hash endpoint.
// It is part of the remote contract and never negotiated.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Algorithms lists every supported algorithm, default first
var Algorithms = []Algorithm{MD5, SHA1, SHA256, SHA512}

// ParseAlgorithm accepts the algorithm name in any case, e.g. "SHA-256" or "sha256"
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	if normalized == "" {
		return MD5, nil
	}
	for _, alg := range Algorithms {
		if string(alg) == normalized {
			return alg, nil
		}
	}
	return "", fmt.Errorf("unsupported digest algorithm: %q", name)
}

// New returns a fresh hash accumulator for the algorithm
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	default:
		return md5.New()
	}
}

// HexLen is the width of a hex-encoded digest, e.g. 32 for MD5
func (a Algorithm) HexLen() int {
	return a.New().Size() * 2
}

// Value is a lowercase hex digest. Values compare case-insensitively.
type Value string

func (v Value) String() string {
	return string(v)
}

// Equal reports whether both digests are the same, ignoring hex case
func (v Value) Equal(other Value) bool {
	return v != "" && strings.EqualFold(string(v), string(other))
}

// Parse validates that s is exactly one hex digest of the given algorithm
func Parse(alg Algorithm, s string) (Value, error) {
	if len(s) != alg.HexLen() {
		return "", fmt.Errorf("expected %d hex characters for %s, got %d", alg.HexLen(), alg, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("digest %q is not hexadecimal", s)
	}
	return Value(strings.ToLower(s)), nil
}

// ComputeFile streams the file through the algorithm in fixed-size chunks.
// It never returns a partial digest: any open or read error fails the whole call.
func ComputeFile(alg Algorithm, path string) (Value, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", updates_api.IOError("open for hashing", path, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	return Compute(alg, file, path)
}

// Compute hashes everything readable from r. name is used for error reporting.
func Compute(alg Algorithm, r io.Reader, name string) (Value, error) {
	h := alg.New()
	buffer := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buffer); err != nil {
		return "", updates_api.IOError("compute "+string(alg), name, err)
	}
	return Value(hex.EncodeToString(h.Sum(nil))), nil
}

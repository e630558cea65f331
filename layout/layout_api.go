package layout

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// LauncherDirName is created under the application-data directory
	LauncherDirName = ".net.classicube.launcher"

	macPathSuffix = "Library/Application Support"

	downloadSuffix     = ".download.tmp"
	decompressedSuffix = ".decompressed.tmp"
	unpackedSuffix     = ".unpacked.tmp"
	newSuffix          = ".new"
	stagingSuffix      = ".new.tmp"
	receiptSuffix      = ".receipt.yaml"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName turns an artifact name into a safe file name component.
// Disallowed runs become "_", leading and trailing dots are trimmed.
func SanitizeName(input string) string {
	sanitized := unsafeNameChars.ReplaceAllString(input, "_")
	sanitized = strings.Trim(sanitized, ".")
	if sanitized == "" {
		return "artifact"
	}
	return sanitized
}

// ArtifactFile is where the installed artifact lives
func ArtifactFile(launcherDir, name string) string {
	return filepath.Join(launcherDir, SanitizeName(name))
}

// NewFile is the staging name used by the installer next to the target
func NewFile(target string) string {
	return target + newSuffix
}

// ReceiptFile records what was installed at target
func ReceiptFile(target string) string {
	return target + receiptSuffix
}

// StagingPattern is an os.CreateTemp pattern for the installer's copy fallback
func StagingPattern(target string) string {
	return filepath.Base(target) + "*" + stagingSuffix
}

// ReceiptPattern is an os.CreateTemp pattern for receipt updates
func ReceiptPattern(target string) string {
	return filepath.Base(target) + receiptSuffix + "*.tmp"
}

// DownloadPattern is an os.CreateTemp pattern for in-flight downloads
func DownloadPattern(name string) string {
	return SanitizeName(name) + "*" + downloadSuffix
}

// DecompressedPattern is an os.CreateTemp pattern for Stage A output
func DecompressedPattern(name string) string {
	return SanitizeName(name) + "*" + decompressedSuffix
}

// UnpackedPattern is an os.CreateTemp pattern for Stage B output
func UnpackedPattern(name string) string {
	return SanitizeName(name) + "*" + unpackedSuffix
}

// OrphanGlobs lists the glob patterns of every temp file a crashed run
// may have left behind for the named artifact.
func OrphanGlobs(launcherDir, name string) []string {
	base := SanitizeName(name)
	return []string{
		filepath.Join(launcherDir, base+"*"+downloadSuffix),
		filepath.Join(launcherDir, base+"*"+decompressedSuffix),
		filepath.Join(launcherDir, base+"*"+unpackedSuffix),
		filepath.Join(launcherDir, base+newSuffix),
		filepath.Join(launcherDir, base+"*"+stagingSuffix),
		filepath.Join(launcherDir, base+receiptSuffix+"*.tmp"),
	}
}

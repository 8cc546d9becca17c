package utils

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ExtractRemoteDir extracts the directory of a remote file including the host
// Example: sftp://user@example.com/a/b/file.zip -> example.com/a/b
func ExtractRemoteDir(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	// Hostname drops the port, which is not useful as a directory name
	host := parsed.Hostname()

	remote := strings.TrimPrefix(parsed.Path, "/")
	dir := path.Dir(remote)
	if dir == "." {
		return host, nil
	}

	return filepath.Join(host, filepath.FromSlash(dir)), nil
}

// RemoteFilename returns the base name of the remote path, or "" for a directory URL
func RemoteFilename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Path == "" || strings.HasSuffix(parsed.Path, "/") {
		return ""
	}
	return path.Base(parsed.Path)
}

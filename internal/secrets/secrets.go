// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key and the trimmed file
// contents are the value.
//
// Known keys: markitdown-api-token (bearer token sent to the conversion
// server).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/markitdown-web/internal/logging"
)

// DefaultDir is where secrets are read from when no directory is given.
const DefaultDir = ".secrets"

// KeyAPIToken names the file holding the conversion server bearer token.
const KeyAPIToken = "markitdown-api-token"

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory yields an empty map. Unreadable files are
// logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger := logging.WithComponent("secrets")
			logger.Warn().Err(err).Str("key", name).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact delivers a converted Markdown artifact to the user: it
// saves the artifact to disk and renders short previews.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/renameio/v2"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

// PreviewChars is how much of the content the preview shows by default.
const PreviewChars = 2000

// Download writes the artifact into dir under its filename and returns the
// written path. The write is atomic; a failed download leaves no partial
// file behind. Directory components in the filename are stripped.
func Download(a types.Artifact, dir string) (string, error) {
	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("artifact has no usable filename %q", a.Filename)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("preparing %s: %w", path, err)
	}
	defer pf.Cleanup() //nolint:errcheck

	if _, err := pf.Write(a.Content); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return path, nil
}

// Preview returns the first n characters of the content and whether it was
// truncated. Truncation never splits a UTF-8 sequence.
func Preview(a types.Artifact, n int) (string, bool) {
	s := string(a.Content)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// Summary is the one-line description shown after a successful conversion:
// the filename, when it was converted, and the source size in KB.
func Summary(a types.Artifact) string {
	kb := float64(a.OriginalSizeBytes) / 1024
	if a.ConvertedAt.IsZero() {
		return fmt.Sprintf("%s • %.1f KB", a.Filename, kb)
	}
	t := a.ConvertedAt.Local()
	return fmt.Sprintf("%s converted on %s at %s • %.1f KB",
		a.Filename, t.Format("2006-01-02"), t.Format("15:04:05"), kb)
}

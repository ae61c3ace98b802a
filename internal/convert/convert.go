// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns uploaded documents into Markdown on the server side.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/markitdown-web/internal/container"
)

// DefaultImage is the markitdown container image.
const DefaultImage = "markitdown:latest"

// ErrEmptyOutput is returned when a backend produced no Markdown.
var ErrEmptyOutput = errors.New("converter produced empty output")

// Converter transforms a document into Markdown text. ext is the lower-case
// extension including the dot (e.g. ".docx"), used as a format hint.
type Converter interface {
	Convert(ctx context.Context, r io.Reader, ext string) (string, error)
}

// MarkitdownConverter pipes documents through the markitdown container
// image using an injected container.Runtime.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownConverter verifies that image exists in rt and returns a
// converter for it. An empty image selects DefaultImage.
func NewMarkitdownConverter(rt container.Runtime, image string) (*MarkitdownConverter, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image}, nil
}

// Convert runs markitdown over r. The extension is passed with -x since
// stdin carries no filename.
func (m *MarkitdownConverter) Convert(ctx context.Context, r io.Reader, ext string) (string, error) {
	var args []string
	if hint := strings.TrimPrefix(ext, "."); hint != "" {
		args = []string{"-x", hint}
	}

	var out bytes.Buffer
	err := m.runtime.Run(ctx, container.RunSpec{Image: m.image, Args: args, Stdin: r, Stdout: &out})
	if err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", ext, err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyOutput
	}
	return out.String(), nil
}

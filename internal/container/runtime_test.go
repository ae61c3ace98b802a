// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if m.runPipedFunc != nil {
		return m.runPipedFunc(ctx, name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	docker := newDockerRuntime(&mockExecutor{runnableCmds: map[string]bool{"docker image inspect markitdown:latest": true}})
	assert.NoError(t, docker.ImageExists("markitdown:latest"))

	podman := newPodmanRuntime(&mockExecutor{})
	err := podman.ImageExists("markitdown:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markitdown:latest")
}

func TestRun(t *testing.T) {
	var gotArgs []string
	exec := &mockExecutor{runPipedFunc: func(_ context.Context, name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
		gotArgs = append([]string{name}, args...)
		data, _ := io.ReadAll(stdin)
		_, _ = stdout.Write([]byte("converted: " + string(data)))
		return nil
	}}

	var out bytes.Buffer
	err := newPodmanRuntime(exec).Run(context.Background(), RunSpec{
		Image:  "markitdown:latest",
		Args:   []string{"-x", "docx"},
		Stdin:  strings.NewReader("doc"),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "converted: doc", out.String())
	assert.Equal(t, []string{"podman", "run", "--rm", "-i", "--network=none", "markitdown:latest", "-x", "docx"}, gotArgs)
}

func TestRun_ErrorIncludesStderr(t *testing.T) {
	exec := &mockExecutor{runPipedFunc: func(_ context.Context, _ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
		_, _ = stderr.Write([]byte("UnsupportedFormatException: bad file\n"))
		return errors.New("exit status 1")
	}}

	err := newDockerRuntime(exec).Run(context.Background(), RunSpec{Image: "markitdown:latest", Stdout: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "UnsupportedFormatException: bad file")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &mockExecutor{runPipedFunc: func(context.Context, string, []string, io.Reader, io.Writer, io.Writer) error {
		return errors.New("signal: killed")
	}}

	err := newDockerRuntime(exec).Run(ctx, RunSpec{Image: "img", Stdout: io.Discard})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimitedBuffer(t *testing.T) {
	var b limitedBuffer
	n, err := b.Write(bytes.Repeat([]byte("x"), maxStderr+100))
	require.NoError(t, err)
	assert.Equal(t, maxStderr+100, n)
	assert.Equal(t, maxStderr, b.Len())
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/markitdown-web/internal/admission"
	"github.com/pdiddy/markitdown-web/internal/artifact"
	"github.com/pdiddy/markitdown-web/internal/history"
	"github.com/pdiddy/markitdown-web/internal/httputil"
	"github.com/pdiddy/markitdown-web/internal/logging"
	"github.com/pdiddy/markitdown-web/internal/transport"
	"github.com/pdiddy/markitdown-web/internal/workflow"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file> [files...]",
	Short: "Convert a document to Markdown",
	Long: `Convert uploads a document to the conversion server and saves the returned
Markdown into --output-dir. Only the first file is converted; any others are
ignored, matching a single-file drop.

The file must have one of the extensions .pptx, .docx, .xlsx, .xls, .pdf or
.md and be at most 30MB. Rejected files never reach the network.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("output-dir", "", "directory for converted Markdown (default \".\")")
	convertCmd.Flags().Bool("stdout", false, "write the Markdown to stdout instead of saving it")
	convertCmd.Flags().Int("preview", 0, "print the first N characters of the result (e.g. 2000)")
	convertCmd.Flags().Bool("no-history", false, "do not record the outcome in the local history")

	bindFlags(convertCmd.Flags(), map[string]string{keyOutputDir: "output-dir"})
	rootCmd.AddCommand(convertCmd)
}

// convertOptions controls one convert run.
type convertOptions struct {
	Stdout  bool
	Preview int
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	toStdout, _ := cmd.Flags().GetBool("stdout")
	preview, _ := cmd.Flags().GetInt("preview")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	hc, err := httputil.NewClient(cfg)
	if err != nil {
		return err
	}
	client, err := transport.New(cfg, hc, logging.WithComponent("transport"))
	if err != nil {
		return err
	}

	opts := []workflow.Option{
		workflow.WithNotifier(workflow.NewWriterNotifier(os.Stderr)),
		workflow.WithLogger(logging.WithComponent("workflow")),
	}
	if !noHistory {
		store, err := history.Open(historyConfig())
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, workflow.WithRecorder(store))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, closeAll, err := openCandidates(args)
	if err != nil {
		return err
	}
	defer closeAll()

	wf := workflow.New(client, opts...)
	return convertFiles(ctx, wf, files, cfg.OutputDir, convertOptions{Stdout: toStdout, Preview: preview}, os.Stdout)
}

// convertFiles drops files on wf, waits for the outcome, and delivers the
// artifact. It returns the failure when the conversion did not succeed.
func convertFiles(ctx context.Context, wf *workflow.Workflow, files []types.CandidateFile, outputDir string, opts convertOptions, w io.Writer) error {
	if !wf.Drop(ctx, files...) {
		return errors.New("no file given")
	}
	wf.Wait()

	st := wf.State()
	if st.Phase == types.PhaseFailed {
		return st.Failure
	}
	if st.Phase != types.PhaseSucceeded || st.Artifact == nil {
		return fmt.Errorf("conversion ended in unexpected state %s", st.Phase)
	}
	a := *st.Artifact
	defer wf.NewConversion()

	if opts.Stdout {
		_, err := w.Write(a.Content)
		return err
	}

	path, err := artifact.Download(a, outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "saved: %s\n", path)
	fmt.Fprintf(w, "%s\n", artifact.Summary(a))

	if opts.Preview > 0 {
		text, truncated := artifact.Preview(a, opts.Preview)
		fmt.Fprintf(w, "\n%s\n", text)
		if truncated {
			fmt.Fprintln(w, "...")
		}
	}
	return nil
}

// openCandidates opens the first path for upload. Further paths are ignored
// without touching the filesystem. The returned func closes the opened file.
func openCandidates(paths []string) ([]types.CandidateFile, func(), error) {
	if len(paths) == 0 {
		return nil, func() {}, nil
	}
	if len(paths) > 1 {
		logger := logging.WithComponent("convert")
		logger.Debug().Int("ignored", len(paths)-1).Msg("only the first file is converted")
	}

	p := paths[0]
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", p, err)
	}
	closeFile := func() { f.Close() }

	info, err := f.Stat()
	if err != nil {
		closeFile()
		return nil, nil, fmt.Errorf("reading %s: %w", p, err)
	}
	if info.IsDir() {
		closeFile()
		return nil, nil, fmt.Errorf("%s is a directory", p)
	}
	name := filepath.Base(p)
	return []types.CandidateFile{{
		Name:      name,
		SizeBytes: info.Size(),
		MIMEHint:  admission.MIMEType(admission.Extension(name)),
		Body:      f,
	}}, closeFile, nil
}

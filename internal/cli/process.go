package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/snarg/meeting-intel/internal/audio"
	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/meeting"
	"github.com/snarg/meeting-intel/internal/pipeline"
	"github.com/snarg/meeting-intel/internal/present"
)

type processFlags struct {
	noDiarization bool
	noAnalysis    bool
	outDir        string
	publish       bool
}

func NewProcessCmd(deps *Dependencies) *cobra.Command {
	var flags processFlags
	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Transcribe and analyze one recording",
		Long:  "Runs the pipeline on a local mp3, wav, m4a or mp4 file and prints the result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runProcess(ctx, deps, args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.noDiarization, "no-diarization", false, "skip speaker identification")
	cmd.Flags().BoolVar(&flags.noAnalysis, "no-analysis", false, "skip strategic analysis")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "write the record as analysis_transcription_<name>.json into this directory")
	cmd.Flags().BoolVar(&flags.publish, "publish", false, "also add the record to the demo corpus")
	return cmd
}

func runProcess(ctx context.Context, deps *Dependencies, path string, flags processFlags) error {
	cfg := deps.Config
	f := present.NewFormatter(deps.stdout)

	if err := audio.Validate(path); err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening audio: %w", err)
	}
	defer in.Close()

	resolver := credentials.NewResolver(cfg.SecretsFile)
	rc, err := pipeline.NewBuilder(cfg, resolver, deps.Log).Build(func(t pipeline.Transition) {
		switch {
		case t.From != t.To:
			f.Stage(string(t.To))
		case t.Err != nil:
			f.Warning(t.Err.Error())
		}
	})
	if err != nil {
		return err
	}

	src, err := audio.Spool(cfg.TempDir, filepath.Base(path), in)
	if err != nil {
		return err
	}

	rec, err := pipeline.New(rc).Run(ctx, src, pipeline.Options{
		EnableDiarization: !flags.noDiarization,
		EnableAnalysis:    !flags.noAnalysis,
	})
	if err != nil {
		return err
	}

	f.Meeting(present.View(rec))

	if flags.outDir != "" {
		out, err := writeRecord(flags.outDir, rec)
		if err != nil {
			return err
		}
		f.Saved(out)
	}
	if flags.publish {
		src, err := demoSource(cfg, deps.Log)
		if err != nil {
			return err
		}
		name, err := demo.NewCorpus(src, deps.Log).Publish(ctx, rec)
		if err != nil {
			return fmt.Errorf("publishing to demo corpus: %w", err)
		}
		f.Success("Added to demo corpus: " + name)
	}
	return nil
}

func writeRecord(dir string, rec *meeting.Record) (string, error) {
	data, err := meeting.EncodeLegacy(rec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, meeting.LegacyFilename(rec.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

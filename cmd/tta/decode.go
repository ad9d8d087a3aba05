package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mewkiz/tta"
	"github.com/mewkiz/tta/internal/pcmio"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [flags] FILE...",
	Short: "decode TTA1 into PCM audio",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, path := range args {
			if err := decodeFile(path); err != nil {
				warnf("%s: %v", path, err)
			}
		}
	},
}

func init() {
	decodeCmd.Flags().StringVar(&flagDecFmt, "format", "w64", "output container: raw, wav or w64")
}

func decodeFile(path string) error {
	s, err := tta.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	hdr := s.Header
	format := pcmio.Format{
		NChan:         int(hdr.NChan),
		BitsPerSample: int(hdr.BitsPerSample),
		SampleRate:    int(hdr.SampleRate),
		NSamples:      int(hdr.NSamples),
	}

	var ext string
	switch flagDecFmt {
	case "raw":
		ext = ".pcm"
	case "wav":
		ext = ".wav"
	case "w64":
		ext = ".w64"
	default:
		return errors.Errorf("unsupported output container %q", flagDecFmt)
	}
	dst, err := outPath(path, ext)
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	rmOnSignal.Store(&dst)
	defer rmOnSignal.Store(nil)

	err = func() error {
		var w pcmio.Writer
		switch flagDecFmt {
		case "raw":
			w, err = pcmio.NewRawWriter(out, format.BitsPerSample)
		case "wav":
			w = pcmio.NewWAVWriter(out, format)
		case "w64":
			w, err = pcmio.NewW64Writer(out, format)
		}
		if err != nil {
			return err
		}
		if err := decodeFrames(s, w, path, nthreads()); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		return errors.WithStack(out.Close())
	}()
	if err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	infof("%s: %d Hz, %d ch, %d bit, %d samples -> %s",
		path, format.SampleRate, format.NChan, format.BitsPerSample, format.NSamples, dst)
	if flagDelete {
		if err := os.Remove(path); err != nil {
			warnf("%s: %v", path, err)
		}
	}
	return nil
}

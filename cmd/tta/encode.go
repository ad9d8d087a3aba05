package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mewkiz/tta"
	"github.com/mewkiz/tta/internal/pcmio"
	"github.com/mewkiz/tta/meta"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [flags] FILE...",
	Short: "encode PCM audio (raw, WAV or Wave64) into TTA1",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, path := range args {
			if err := encodeFile(path); err != nil {
				warnf("%s: %v", path, err)
			}
		}
	},
}

func init() {
	encodeCmd.Flags().StringVar(&flagRawPCM, "rawpcm", "", "raw input description: format,rate,channels (format: u8, i16le, i24le)")
}

// parseRawPCM parses the --rawpcm flag value.
func parseRawPCM(s string) (*pcmio.Format, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, errors.Errorf("malformed --rawpcm value %q; expected format,rate,channels", s)
	}
	var bits int
	switch parts[0] {
	case "u8":
		bits = 8
	case "i16le":
		bits = 16
	case "i24le":
		bits = 24
	default:
		return nil, errors.Errorf("unsupported raw PCM format %q", parts[0])
	}
	rate, err := strconv.Atoi(parts[1])
	if err != nil || rate <= 0 {
		return nil, errors.Errorf("malformed raw PCM sample rate %q", parts[1])
	}
	nchan, err := strconv.Atoi(parts[2])
	if err != nil || nchan <= 0 {
		return nil, errors.Errorf("malformed raw PCM channel count %q", parts[2])
	}
	return &pcmio.Format{NChan: nchan, BitsPerSample: bits, SampleRate: rate}, nil
}

func encodeFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()

	var raw *pcmio.Format
	if flagRawPCM != "" {
		if raw, err = parseRawPCM(flagRawPCM); err != nil {
			return err
		}
	}
	r, err := pcmio.NewReader(in, raw)
	if err != nil {
		return err
	}
	format := r.Format()
	if format.NSamples == 0 {
		// Headerless input; the sample count comes from the file size.
		fi, err := in.Stat()
		if err != nil {
			return errors.WithStack(err)
		}
		format.NSamples = int(fi.Size()) / (format.NChan * format.BitsPerSample / 8)
	}

	dst, err := outPath(path, ".tta")
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	rmOnSignal.Store(&dst)
	defer rmOnSignal.Store(nil)

	hdr := &meta.FileHeader{
		NChan:         uint16(format.NChan),
		BitsPerSample: uint16(format.BitsPerSample),
		SampleRate:    uint32(format.SampleRate),
		NSamples:      uint32(format.NSamples),
	}
	err = func() error {
		enc, err := tta.NewEncoder(out, hdr)
		if err != nil {
			return err
		}
		if err := encodeFrames(enc, r, nthreads()); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
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

// outPath derives the destination path from the input path, honoring -o
// and refusing to clobber an existing file.
func outPath(in, ext string) (string, error) {
	dst := flagOutput
	if dst == "" {
		dst = pathutil.TrimExt(in) + ext
	}
	if osutil.Exists(dst) {
		return "", errors.Errorf("destination %q already present", dst)
	}
	return dst, nil
}

// fillSamples reads exactly len(dst) interleaved samples.
func fillSamples(r pcmio.Reader, dst []int32) error {
	for len(dst) > 0 {
		n, err := r.ReadSamples(dst)
		if err != nil {
			return errors.Wrap(err, "short PCM input")
		}
		dst = dst[n:]
	}
	return nil
}

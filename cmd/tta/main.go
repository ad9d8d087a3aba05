// Command tta is a batch encoder and decoder for TTA1 (True Audio)
// lossless audio files.
//
// Usage:
//
//	tta encode [-o PATH] [--rawpcm=format,rate,channels] FILE...
//	tta decode [-o PATH] [--format={raw|wav|w64}] FILE...
//
// The exit status is the number of warnings and errors encountered.
package main

import (
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagOutput  string
	flagQuiet   bool
	flagDelete  bool
	flagSingle  bool
	flagMulti   bool
	flagThreads int
	flagRawPCM  string
	flagDecFmt  string
)

// nwarnings counts warnings and errors; it becomes the process exit status.
var nwarnings atomic.Uint32

// rmOnSignal names the destination file currently being written. The
// interrupt handler removes it so an interrupted run does not leave a
// truncated artifact behind.
var rmOnSignal atomic.Pointer[string]

func warnf(format string, args ...interface{}) {
	nwarnings.Add(1)
	if !flagQuiet {
		log.Warnf(format, args...)
	}
}

func infof(format string, args ...interface{}) {
	if !flagQuiet {
		log.Infof(format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tta",
	Short:         "TTA1 lossless audio encoder and decoder",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagOutput, "output", "o", "", "destination path (single input only)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress diagnostics")
	pf.BoolVarP(&flagDelete, "delete", "d", false, "delete the source file after a successful conversion")
	pf.BoolVarP(&flagSingle, "single-threaded", "S", false, "force single-threaded coding")
	pf.BoolVarP(&flagMulti, "multi-threaded", "M", false, "force multi-threaded coding")
	pf.IntVarP(&flagThreads, "threads", "t", 0, "number of coder threads")
	rootCmd.AddCommand(encodeCmd, decodeCmd)
}

func main() {
	log.SetReportTimestamp(false)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		if p := rmOnSignal.Load(); p != nil {
			os.Remove(*p)
		}
		os.Exit(exitStatus(nwarnings.Load() + 1))
	}()

	if err := rootCmd.Execute(); err != nil {
		warnf("%v", err)
	}
	os.Exit(exitStatus(nwarnings.Load()))
}

// exitStatus saturates the warning count into an exit code.
func exitStatus(n uint32) int {
	if n > 255 {
		return 255
	}
	return int(n)
}

// nthreads resolves the -S/-M/-t flags into a coder thread count.
func nthreads() int {
	switch {
	case flagSingle:
		return 1
	case flagThreads > 0:
		return flagThreads
	case flagMulti:
		return runtime.NumCPU()
	}
	return 1
}

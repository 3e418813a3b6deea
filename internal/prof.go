// Package internal holds helpers shared by the commands
package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"
)

func writeProfIfNExist(path string, name string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return err
	}
	fprof, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fprof.Close()
	return pprof.Lookup(name).WriteTo(fprof, 0)
}

// StartCPUProf profiles the cpu to path until stop is called
func StartCPUProf(path string) (stop func() error, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err = pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

// WriteMemProf writes the heap and allocs profiles to <dir>/<prefix>.mem.prof
// and <dir>/<prefix>.alloc.prof. Existing profiles are kept.
func WriteMemProf(dir, prefix string, l *zap.Logger) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	mstats := new(runtime.MemStats)
	runtime.ReadMemStats(mstats)
	if l != nil {
		l.Info("memory profile",
			zap.Uint64("MiB for heap (un-GC)", mstats.Alloc/1024/1024),
			zap.Uint64("MiB for heap (max ever)", mstats.HeapSys/1024/1024),
			zap.Int("num go routines", runtime.NumGoroutine()),
		)
	}
	basePath := filepath.Join(dir, prefix)
	if err := writeProfIfNExist(basePath+".mem.prof", "heap"); err != nil {
		return err
	}
	return writeProfIfNExist(basePath+".alloc.prof", "allocs")
}

package testutils

import (
	"io"
	"os"
	"sync"
)

var stdCaptureMutex sync.Mutex

// CaptureStdoutStderr runs f and returns what it printed, calls are serialized
// since os.Stdout and os.Stderr are process wide
func CaptureStdoutStderr(f func()) (string, string) {
	stdCaptureMutex.Lock()
	defer stdCaptureMutex.Unlock()

	savedStdout := os.Stdout
	savedStderr := os.Stderr
	defer func() {
		os.Stdout = savedStdout
		os.Stderr = savedStderr
	}()

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	// drain both pipes while f runs so large outputs cannot block it
	var wg sync.WaitGroup
	var stdout, stderr []byte
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout, _ = io.ReadAll(rOut)
	}()
	go func() {
		defer wg.Done()
		stderr, _ = io.ReadAll(rErr)
	}()

	f()
	_ = wOut.Close()
	_ = wErr.Close()
	wg.Wait()
	_ = rOut.Close()
	_ = rErr.Close()

	return string(stdout), string(stderr)
}

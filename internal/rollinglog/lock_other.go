//go:build !unix && !windows

package rollinglog

import "os"

// Platforms without file locks rely on the in-process mutex alone.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }

// Package version holds build metadata injected at link time, e.g.
//
//	go build -ldflags "-X github.com/jackzampolin/slate/version.GitRelease=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag of the build.
	GitRelease = "dev"
	// GitCommit is the commit hash of the build.
	GitCommit = "unknown"
	// GitCommitDate is the commit date of the build.
	GitCommitDate = "unknown"
	// GoInfo describes the toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

//go:build arm64

package rawcan

import "golang.org/x/sys/unix"

var defaultRecvTimeout = unix.Timeval{
	Sec:  int64(0),
	Usec: int64(100_000),
}

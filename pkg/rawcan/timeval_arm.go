//go:build arm

package rawcan

import "golang.org/x/sys/unix"

var defaultRecvTimeout = unix.Timeval{
	Sec:  int32(0),
	Usec: int32(100_000),
}

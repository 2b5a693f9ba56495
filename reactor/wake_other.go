//go:build !linux

package reactor

func createWakeFD() (int, error) { return -1, errUnsupported }
func wakeFDSignal(fd int)        {}
func wakeFDDrain(fd int)         {}

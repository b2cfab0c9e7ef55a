//go:build !unix

package wire

func dupFd(int) (int, error) {
	return -1, ErrFdUnsupported
}

func closeFd(int) {}

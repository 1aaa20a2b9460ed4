//go:build !linux

package bufpool

// allocRegion falls back to heap memory where user-pointer capture is unavailable.
func allocRegion(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func freeRegion([]byte) error {
	return nil
}

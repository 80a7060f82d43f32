package kernel

// Memset sets every byte of b to the supplied value. The implementation is
// based on bytes.Repeat; instead of using a for loop, this function uses
// log2(len(b)) copy calls which should give us a speed boost as page-sized
// buffers are always powers of two.
func Memset(b []byte, value byte) {
	if len(b) == 0 {
		return
	}

	b[0] = value
	for index := 1; index < len(b); index *= 2 {
		copy(b[index:], b[:index])
	}
}

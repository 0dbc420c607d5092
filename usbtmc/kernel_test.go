package usbtmc

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"
)

// kernelPipePair backs a KernelDevice with the read end of an os.Pipe,
// which supports deadlines like the usbtmc character device does.
func kernelPipePair(t *testing.T, timeout time.Duration) (*KernelDevice, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return &KernelDevice{file: r, timeout: timeout}, w
}

func TestKernelDeviceReadTimeout(t *testing.T) {
	d, _ := kernelPipePair(t, 10*time.Millisecond)

	buf := make([]byte, 16)
	_, err := d.Read(buf)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("stalled read: expected ErrTimeout, got %v", err)
	}
}

func TestKernelDeviceReadReturnsPayload(t *testing.T) {
	d, w := kernelPipePair(t, time.Second)

	want := []byte("RIGOL TECHNOLOGIES\n")
	if _, err := w.Write(want); err != nil {
		t.Fatalf("write pipe: %v", err)
	}

	buf := make([]byte, 64)
	n, err := d.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("read %q, want %q", buf[:n], want)
	}
}

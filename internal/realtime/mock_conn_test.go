package realtime

import (
	"io"
	"sync"
)

type frame struct {
	kind int
	data []byte
}

// fakeConn records written frames. ReadMessage blocks until hangUp is called.
type fakeConn struct {
	mu      sync.Mutex
	written []frame
	closed  int

	hungUp   chan struct{}
	hangOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{hungUp: make(chan struct{})}
}

func (c *fakeConn) hangUp() {
	c.hangOnce.Do(func() { close(c.hungUp) })
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.hungUp
	return 0, nil, io.EOF
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, frame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) frames() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.written...)
}

func (c *fakeConn) closeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

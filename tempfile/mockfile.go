package tempfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
)

// MockDir provides an in-memory implementation of the Dir interface.
// Segments live in byte slices instead of files. This is useful for testing
// and benchmarking the engine without filesystem I/O.
type MockDir struct {
	mu       sync.Mutex
	segments map[string][]byte
	pending  map[string]bool
	closed   bool

	// Fault, when set, is consulted before every operation. A non-nil
	// return fails the operation with that error. Ops are "create",
	// "write", "commit", "open", "rename" and "remove".
	Fault func(op, name string) error
}

// Mock creates a new empty in-memory Dir.
func Mock() *MockDir {
	return &MockDir{
		segments: make(map[string][]byte),
		pending:  make(map[string]bool),
	}
}

func (m *MockDir) fault(op, name string) error {
	if m.Fault == nil {
		return nil
	}
	return m.Fault(op, name)
}

// Path returns a pseudo path for logging
func (m *MockDir) Path() string {
	return fmt.Sprintf("mem://%p", m)
}

// Close drops every segment. Later operations fail with os.ErrClosed.
func (m *MockDir) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.segments = nil
	m.pending = nil
	return nil
}

// Closed reports whether Close has been called
func (m *MockDir) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Len returns the number of committed segments plus in-flight writers
func (m *MockDir) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.segments) + len(m.pending)
}

func (m *MockDir) Create(name string) (SegmentWriter, error) {
	if err := m.fault("create", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrClosed}
	}
	if m.pending[name] {
		return nil, &os.PathError{Op: "create", Path: name + partialSuffix, Err: os.ErrExist}
	}
	m.pending[name] = true
	return &mockWriter{dir: m, name: name}, nil
}

func (m *MockDir) Open(name string) (SegmentReader, error) {
	if err := m.fault("open", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.segments[name]
	if !ok {
		return nil, notExist("open", name)
	}
	return &mockReader{name: name, buf: bufio.NewReaderSize(bytes.NewReader(data), fileBufferSize)}, nil
}

func (m *MockDir) Rename(oldName, newName string) error {
	if err := m.fault("rename", oldName); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.segments[oldName]
	if !ok {
		return notExist("rename", oldName)
	}
	delete(m.segments, oldName)
	m.segments[newName] = data
	return nil
}

func (m *MockDir) Remove(name string) error {
	if err := m.fault("remove", name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.segments[name]; !ok {
		return notExist("remove", name)
	}
	delete(m.segments, name)
	return nil
}

func (m *MockDir) List(suffix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.segments))
	for name := range m.segments {
		names = append(names, name)
	}
	return sortSegmentNames(names, suffix), nil
}

// mockWriter buffers a segment until Commit hands it to the MockDir
type mockWriter struct {
	dir  *MockDir
	name string
	data bytes.Buffer
	done bool
}

func (w *mockWriter) Name() string {
	return w.name
}

func (w *mockWriter) Written() int64 {
	return int64(w.data.Len())
}

func (w *mockWriter) Write(p []byte) (int, error) {
	if err := w.dir.fault("write", w.name); err != nil {
		return 0, err
	}
	return w.data.Write(p)
}

func (w *mockWriter) WriteString(s string) (int, error) {
	if err := w.dir.fault("write", w.name); err != nil {
		return 0, err
	}
	return w.data.WriteString(s)
}

func (w *mockWriter) Commit() error {
	if w.done {
		return fmt.Errorf("tempfile: segment %s already finished", w.name)
	}
	if err := w.dir.fault("commit", w.name); err != nil {
		_ = w.Abort()
		return err
	}
	w.done = true
	w.dir.mu.Lock()
	defer w.dir.mu.Unlock()
	if w.dir.closed {
		return &os.PathError{Op: "commit", Path: w.name, Err: os.ErrClosed}
	}
	delete(w.dir.pending, w.name)
	w.dir.segments[w.name] = w.data.Bytes()
	return nil
}

func (w *mockWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.data.Reset()
	w.dir.mu.Lock()
	defer w.dir.mu.Unlock()
	if !w.dir.closed {
		delete(w.dir.pending, w.name)
	}
	return nil
}

type mockReader struct {
	name string
	buf  *bufio.Reader
}

func (r *mockReader) Name() string {
	return r.name
}

func (r *mockReader) Reader() *bufio.Reader {
	return r.buf
}

func (r *mockReader) Close() error {
	r.buf = nil
	return nil
}

package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Stdio is the server-side duplex transport: it reads newline-delimited
// JSON-RPC frames from an input stream and writes frames to an output
// stream, one at a time. Unlike a client transport that spawns a peer
// process, this transport IS the process's own stdin/stdout.
type Stdio struct {
	reader *bufio.Scanner
	writer *bufio.Writer
	mu     sync.Mutex // serializes writes so one frame is never interleaved with another
}

// NewStdio wraps r/w as the protocol transport. frameMaxBytes bounds a
// single frame's size (protocol.frame_max_bytes); 0 falls back to 1MB.
func NewStdio(r io.Reader, w io.Writer, frameMaxBytes int) *Stdio {
	if frameMaxBytes <= 0 {
		frameMaxBytes = 1024 * 1024
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, frameMaxBytes)
	return &Stdio{
		reader: scanner,
		writer: bufio.NewWriter(w),
	}
}

// Receive reads and decodes the next frame. It returns io.EOF when the
// peer closes the stream.
func (s *Stdio) Receive() (*Message, error) {
	if !s.reader.Scan() {
		if err := s.reader.Err(); err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		return nil, io.EOF
	}

	line := s.reader.Bytes()
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	return &msg, nil
}

// Send writes a single frame followed by a newline, flushing immediately.
// Concurrent callers are serialized so a frame is never split by another.
func (s *Stdio) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write frame newline: %w", err)
	}
	return s.writer.Flush()
}

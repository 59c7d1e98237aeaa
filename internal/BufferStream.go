/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
// Package internal holds helpers shared by the pipeline packages and their tests.
package internal

import (
	"bytes"
	"errors"
	"io"
)

var errStreamClosed = errors.New("Stream closed")

// BufferStream is a closable read/write stream of bytes backed by a bytes.Buffer.
// Reads consume the data written so far and return io.EOF once it is exhausted.
type BufferStream struct {
	buf    *bytes.Buffer
	closed bool
}

// NewBufferStream creates a new instance of BufferStream, optionally
// primed with the content to read.
func NewBufferStream(args ...[]byte) *BufferStream {
	this := &BufferStream{}

	if len(args) == 1 {
		this.buf = bytes.NewBuffer(args[0])
	} else {
		this.buf = bytes.NewBuffer(make([]byte, 0, 1024))
	}

	return this
}

// Write appends the data to the internal buffer. Fails if the stream is closed.
func (this *BufferStream) Write(b []byte) (int, error) {
	if this.closed {
		return 0, errStreamClosed
	}

	return this.buf.Write(b)
}

// WriteByte appends one byte to the internal buffer.
func (this *BufferStream) WriteByte(b byte) error {
	if this.closed {
		return errStreamClosed
	}

	return this.buf.WriteByte(b)
}

// Read reads data at the current read offset. Returns (0, io.EOF) when no
// more data remains.
func (this *BufferStream) Read(b []byte) (int, error) {
	if this.closed {
		return 0, errStreamClosed
	}

	if this.buf.Len() == 0 && len(b) > 0 {
		return 0, io.EOF
	}

	return this.buf.Read(b)
}

// ReadByte reads the next byte or returns io.EOF.
func (this *BufferStream) ReadByte() (byte, error) {
	if this.closed {
		return 0, errStreamClosed
	}

	return this.buf.ReadByte()
}

// Close makes the stream unavailable for future reads or writes.
func (this *BufferStream) Close() error {
	this.closed = true
	return nil
}

// Len returns the number of unread bytes
func (this *BufferStream) Len() int {
	return this.buf.Len()
}

// Bytes returns the unread bytes. The slice aliases the internal buffer.
func (this *BufferStream) Bytes() []byte {
	return this.buf.Bytes()
}

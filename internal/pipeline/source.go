package pipeline

import (
	"bufio"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/parquetry/parquetry/pkg/errors"
)

// ByteSource opens a remote object as a lazy, sequential byte stream.
// The stream is restartable only from the start; the pipeline reads it
// exactly once, front to back.
type ByteSource interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ByteSink delivers a complete finished buffer to a remote location in
// one all-or-nothing write.
type ByteSink interface {
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// Location identifies an object in the store.
type Location struct {
	Bucket string
	Key    string
}

// lineScanner yields text lines from a byte stream through a fixed-size
// buffer, so the whole object is never held in memory. Lines must be
// valid UTF-8; anything else is a transport-level failure.
type lineScanner struct {
	reader *bufio.Reader
	done   bool
}

func newLineScanner(r io.Reader, bufSize int) *lineScanner {
	return &lineScanner{reader: bufio.NewReaderSize(r, bufSize)}
}

// next returns the next line without its terminator. io.EOF signals a
// clean end of stream; any other error is an IO error.
func (s *lineScanner) next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	line, err := s.reader.ReadString('\n')
	if err == io.EOF {
		s.done = true
		if line == "" {
			return "", io.EOF
		}
	} else if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to read from source stream")
	}

	line = strings.TrimRight(line, "\r\n")
	if !utf8.ValidString(line) {
		return "", errors.New(errors.ErrorTypeIO, "source stream is not valid UTF-8")
	}
	return line, nil
}

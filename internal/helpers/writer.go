package helpers

import (
	"bytes"
	"io"
)

// PrefixWriter adds a prefix to each complete line written through it.
// Incomplete lines are held back until a newline arrives or Flush is called.
type PrefixWriter struct {
	writer io.Writer
	prefix []byte
	buf    bytes.Buffer
}

func NewPrefixWriter(writer io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{
		writer: writer,
		prefix: []byte(prefix),
	}
}

func (pw *PrefixWriter) Write(p []byte) (n int, err error) {
	pw.buf.Write(p)

	for {
		line, err := pw.buf.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				pw.buf.Write(line)
				break
			}
			return n, err
		}
		if err := pw.writeLine(line); err != nil {
			return n, err
		}
	}

	return len(p), nil
}

// Flush writes any buffered partial line, terminated with a newline.
func (pw *PrefixWriter) Flush() error {
	if pw.buf.Len() == 0 {
		return nil
	}
	line := append(pw.buf.Bytes(), '\n')
	pw.buf.Reset()
	return pw.writeLine(line)
}

func (pw *PrefixWriter) writeLine(line []byte) error {
	if _, err := pw.writer.Write(pw.prefix); err != nil {
		return err
	}
	_, err := pw.writer.Write(line)
	return err
}

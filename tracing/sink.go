package tracing

import (
	"bufio"
	"io"
	"log"

	"github.com/tebeka/atexit"
)

// A Sink consumes one formatted trace line. Sinks are called once per line,
// in the order lines are produced.
type Sink func(line string)

// LoggerSink returns a sink that writes each line with the logger.
func LoggerSink(logger *log.Logger) Sink {
	return func(line string) {
		logger.Print(line)
	}
}

// A WriterSink buffers trace lines and writes them to an io.Writer, one line
// per Write. The buffer is flushed at process exit.
type WriterSink struct {
	writer *bufio.Writer
}

// NewWriterSink creates a sink over w and registers its flush to run at
// process exit.
func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{writer: bufio.NewWriter(w)}

	atexit.Register(func() {
		_ = s.Flush()
	})

	return s
}

// Sink returns the line consumer backed by this writer.
func (s *WriterSink) Sink() Sink {
	return func(line string) {
		_, err := s.writer.WriteString(line + "\n")
		if err != nil {
			log.Panic(err)
		}
	}
}

// Flush writes out all buffered lines.
func (s *WriterSink) Flush() error {
	return s.writer.Flush()
}

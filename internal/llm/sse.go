package llm

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// maxResponseSize caps how much of a streaming body we are willing to read.
const maxResponseSize = 1 << 20

var errResponseTooLarge = errors.New("response exceeded maximum size")

type sseDecoder struct {
	r *bufio.Reader
}

func newSSEDecoder(r io.Reader) *sseDecoder {
	capped := &cappedReader{r: r, remaining: maxResponseSize + 1}
	return &sseDecoder{r: bufio.NewReaderSize(capped, 64*1024)}
}

// Next returns the next SSE event's concatenated data payload.
//
// Multiple `data:` lines in one event are joined with `\n`. Comment
// lines (leading `:`) and non-data fields such as `event:` are skipped.
// A trailing event without a blank-line terminator is flushed at EOF.
func (d *sseDecoder) Next() ([]byte, error) {
	var dataLines [][]byte
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			// If we accumulated data before EOF, return it.
			if len(line) > 0 {
				line = bytes.TrimRight(line, "\r\n")
				if len(line) > 0 {
					dataLines = appendDataLine(dataLines, line)
				}
			}
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) == 0 {
				continue
			}
			return bytes.Join(dataLines, []byte("\n")), nil
		}

		// Comment line (keep-alive).
		if line[0] == ':' {
			continue
		}
		dataLines = appendDataLine(dataLines, line)
	}
}

func appendDataLine(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	val := line[len("data:"):]
	if len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	return append(dst, append([]byte(nil), val...))
}

// cappedReader fails the stream once more than maxResponseSize bytes have
// been read. One byte of slack so a body of exactly the cap still
// terminates cleanly.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		return 0, errResponseTooLarge
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}

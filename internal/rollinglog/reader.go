package rollinglog

import (
	"bytes"
	"errors"
	"os"
	"strings"
)

// ReadHeader returns the header of the log at path and the offset at which
// its body starts. A file that does not begin with the header sentinel has no
// header and a body starting at 0.
func ReadHeader(path string) (Header, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, 0, err
	}
	return splitHeader(data)
}

func splitHeader(data []byte) (Header, int64, error) {
	if !bytes.HasPrefix(data, []byte(HeaderBegin)) {
		return Header{}, 0, nil
	}
	h, off, err := DecodeHeader(bytes.NewReader(data))
	if err != nil && !errors.Is(err, ErrMalformedHeader) {
		return Header{}, 0, err
	}
	return h, off, err
}

// TailLines returns the last n physical lines of the log body, oldest first.
// n <= 0 returns the whole body.
func TailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	_, off, err := splitHeader(data)
	if err != nil && !errors.Is(err, ErrMalformedHeader) {
		return nil, err
	}
	body := strings.TrimRight(string(data[off:]), "\n")
	if body == "" {
		return nil, nil
	}
	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

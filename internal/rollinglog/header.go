package rollinglog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel lines delimiting the header block.
const (
	HeaderBegin = "%BeginHeader:WatsLogFile%"
	HeaderEnd   = "%EndHeader:WatsLogFile%"
)

// Well-known header keys, in the order the client writes them.
const (
	KeyCreated     = "created"
	KeyMachineName = "machinename"
	KeyVersion     = "watsversion"
	KeyOSVersion   = "osver"
	KeyLicenseType = "lictype"
	KeyIdentifier  = "identifier"
	KeyServerURL   = "serverurl"
)

// ErrMalformedHeader is returned by DecodeHeader when the sentinels were found
// but the block between them is not a JSON object of strings.
var ErrMalformedHeader = errors.New("malformed log header")

// Field is one key/value pair of a Header.
type Field struct {
	Key   string
	Value string
}

// Header is an insertion-ordered string map. The zero value is an empty header.
type Header struct {
	fields []Field
}

// NewHeader builds a header from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewHeader(kv ...string) Header {
	var h Header
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

// Set replaces the value of key in place, or appends it.
func (h *Header) Set(key, value string) {
	for i := range h.fields {
		if h.fields[i].Key == key {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (h Header) Get(key string) (string, bool) {
	for _, f := range h.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns a copy of the header's fields in order.
func (h Header) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Len returns the number of fields.
func (h Header) Len() int { return len(h.fields) }

// Map returns the header as a plain map, losing order.
func (h Header) Map() map[string]string {
	m := make(map[string]string, len(h.fields))
	for _, f := range h.fields {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON encodes the header as a JSON object preserving field order.
func (h Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range h.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the header, keeping the order in
// which keys appear. null values decode as empty strings.
func (h *Header) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value *string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		f := Field{Key: key}
		if value != nil {
			f.Value = *value
		}
		fields = append(fields, f)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	h.fields = fields
	return nil
}

// EncodeHeader writes the header block: the begin sentinel, the header as an
// indented JSON object, and the end sentinel, each terminated by a newline.
func EncodeHeader(w io.Writer, h Header) error {
	body, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Grow(len(HeaderBegin) + len(body) + len(HeaderEnd) + 3)
	buf.WriteString(HeaderBegin)
	buf.WriteByte('\n')
	buf.Write(body)
	buf.WriteByte('\n')
	buf.WriteString(HeaderEnd)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

// encodedHeader is EncodeHeader into a byte slice.
func encodedHeader(h Header) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeHeader(&buf, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeHeader scans r line by line from its current position until the end
// sentinel and returns the decoded header together with the number of bytes
// consumed up to and including the end-sentinel line.
//
// If the end sentinel never appears, the returned offset is the length of the
// whole stream: the remainder is treated as a stale header. Lines ending in
// "\r\n" are accepted.
//
// Returns:
//   - Header: The decoded header, empty if not found or malformed.
//   - int64: Offset immediately after the end-sentinel line.
//   - error: ErrMalformedHeader (offset still valid) or an I/O error.
func DecodeHeader(r io.Reader) (Header, int64, error) {
	br := bufio.NewReader(r)
	var (
		offset   int64
		body     bytes.Buffer
		inHeader bool
	)
	for {
		line, err := br.ReadString('\n')
		offset += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case trimmed == HeaderEnd:
			var h Header
			if !inHeader {
				return h, offset, nil
			}
			if uerr := json.Unmarshal(body.Bytes(), &h); uerr != nil {
				return Header{}, offset, fmt.Errorf("%w: %v", ErrMalformedHeader, uerr)
			}
			return h, offset, nil
		case trimmed == HeaderBegin:
			inHeader = true
			body.Reset()
		case inHeader:
			body.WriteString(line)
		}
		if errors.Is(err, io.EOF) {
			return Header{}, offset, nil
		}
		if err != nil {
			return Header{}, offset, err
		}
	}
}

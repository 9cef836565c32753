// Package support builds the support bundle a station operator sends to
// support: one zip archive with the rolling log, the settings file and a
// status snapshot.
package support

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/virinco/watsclient/internal/errors"
)

// StatusEntryName is the archive name of the generated status snapshot.
const StatusEntryName = "status.json"

type source struct {
	name     string
	path     string
	data     func() ([]byte, error)
	required bool
}

// Bundle collects the archive entries in the order they were added.
type Bundle struct {
	sources []source
	now     func() time.Time
}

// New starts a bundle around the log at logPath. The log is required: a
// bundle without it fails.
func New(logPath string) *Bundle {
	b := &Bundle{now: time.Now}
	b.sources = append(b.sources, source{name: filepath.Base(logPath), path: logPath, required: true})
	return b
}

// AddFile adds an optional file under its base name. An empty path is ignored.
func (b *Bundle) AddFile(path string) *Bundle {
	if path == "" {
		return b
	}
	b.sources = append(b.sources, source{name: filepath.Base(path), path: path})
	return b
}

// AddJSON adds v, marshalled when the archive is written, as an optional entry.
func (b *Bundle) AddJSON(name string, v any) *Bundle {
	b.sources = append(b.sources, source{name: name, data: func() ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}})
	return b
}

// Names lists the entry names in archive order.
func (b *Bundle) Names() []string {
	names := make([]string, len(b.sources))
	for i, s := range b.sources {
		names[i] = s.name
	}
	return names
}

// WriteTo writes the archive to w. A required entry that cannot be read
// aborts the archive; an optional one is replaced by a note naming it
// followed by the error as JSON.
func (b *Bundle) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, s := range b.sources {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     s.name,
			Method:   zip.Deflate,
			Modified: b.now(),
		})
		if err != nil {
			return err
		}
		if err := s.copyTo(entry); err != nil {
			if s.required {
				return apperrors.NewLogFileError("bundle", s.path, err)
			}
			if werr := writeFailure(entry, s.name, err); werr != nil {
				return werr
			}
		}
	}
	return zw.Close()
}

func (s source) copyTo(w io.Writer) error {
	if s.data != nil {
		data, err := s.data()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	fh, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = io.Copy(w, fh)
	return err
}

func writeFailure(w io.Writer, name string, cause error) error {
	detail, err := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{fmt.Sprintf("%T", cause), cause.Error()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Failed to add %s.\n%s", name, detail)
	return err
}

// Create writes the archive to zipPath. A failed bundle leaves no file behind.
func (b *Bundle) Create(zipPath string) (err error) {
	fh, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(zipPath)
		}
	}()
	return b.WriteTo(fh)
}

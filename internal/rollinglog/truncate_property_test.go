package rollinglog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTruncateKeepsWholeLineSuffix checks, for arbitrary bodies and
// thresholds, that truncation leaves one fresh header followed by a suffix of
// the old body made of whole lines and no longer than the minimum size.
func TestTruncateKeepsWholeLineSuffix(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	dir := t.TempDir()

	properties.Property("truncated body is a bounded whole-line suffix", prop.ForAll(
		func(messages []string, minSize int64) bool {
			path := filepath.Join(dir, "prop.log")
			var body strings.Builder
			for _, m := range messages {
				body.WriteString(FormatEntry(firstClock, "INFO", m) + "\n")
			}
			var content bytes.Buffer
			if err := EncodeHeader(&content, stationHeader()); err != nil {
				t.Log(err)
				return false
			}
			content.WriteString(body.String())
			if err := os.WriteFile(path, content.Bytes(), 0o644); err != nil {
				t.Log(err)
				return false
			}

			f := newTestFile(t, path, testOptions(secondClock, WithSizes(minSize+1, minSize))...)
			if err := f.Truncate(context.Background(), false); err != nil {
				t.Log(err)
				return false
			}
			f.Close()

			data, err := os.ReadFile(path)
			if err != nil {
				return false
			}
			if strings.Count(string(data), HeaderBegin) != 1 {
				return false
			}
			h, off, err := splitHeader(data)
			if err != nil {
				return false
			}
			old := body.String()
			got := string(data[off:])
			if int64(content.Len()) < minSize+1 {
				// Below the threshold nothing changes.
				return bytes.Equal(data, content.Bytes())
			}
			created, _ := h.Get(KeyCreated)
			return created == secondClock.Format(TimestampLayout) &&
				int64(len(got)) <= minSize &&
				strings.HasSuffix(old, got) &&
				(got == old || got == "" || strings.HasSuffix(old, "\n"+got))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int64Range(16, 2048),
	))

	properties.TestingRun(t)
}

// TestHeaderOnlyKeepsBody checks that a header refresh never changes the body.
func TestHeaderOnlyKeepsBody(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	dir := t.TempDir()

	properties.Property("header refresh preserves every body byte", prop.ForAll(
		func(messages []string) bool {
			path := filepath.Join(dir, "refresh.log")
			var content bytes.Buffer
			if err := EncodeHeader(&content, stationHeader()); err != nil {
				return false
			}
			for _, m := range messages {
				content.WriteString(FormatEntry(firstClock, "INFO", m) + "\n")
			}
			_, oldEnd, _ := splitHeader(content.Bytes())
			oldBody := content.String()[oldEnd:]
			if err := os.WriteFile(path, content.Bytes(), 0o644); err != nil {
				return false
			}

			f := newTestFile(t, path, testOptions(secondClock)...)
			defer f.Close()
			if err := f.Truncate(context.Background(), true); err != nil {
				return false
			}
			h, body := readBody(t, path)
			created, _ := h.Get(KeyCreated)
			return body == oldBody && created == secondClock.Format(TimestampLayout)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

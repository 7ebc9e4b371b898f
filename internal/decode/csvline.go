// Package decode turns raw text lines into typed rows: it splits
// comma-delimited, double-quote-escaped fields, resolves the source
// header against the declared schema by name, and coerces field text
// into typed values with a null-on-failure policy.
package decode

import (
	"bufio"
	"io"
	"strings"

	"github.com/parquetry/parquetry/pkg/errors"
)

// SplitLine splits a line into fields on commas outside double quotes.
// An escaped quote ("") inside a quoted field is a literal quote. A line
// left inside quotes at the end is structurally malformed and yields a
// parse error.
func SplitLine(line string) ([]string, error) {
	fields := make([]string, 0, 16)
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}

	if inQuotes {
		return nil, errors.New(errors.ErrorTypeParse, "unterminated quote")
	}

	fields = append(fields, field.String())
	return fields, nil
}

// Header maps source column names, trimmed of surrounding whitespace, to
// their position in the incoming line.
type Header map[string]int

// ProbeHeader reads the first non-empty line of a stream and returns
// its trimmed column names in source order.
func ProbeHeader(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil, errors.New(errors.ErrorTypeSchema, "empty input: no header line")
		}
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read header line")
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if err == io.EOF {
				return nil, errors.New(errors.ErrorTypeSchema, "empty input: no header line")
			}
			continue
		}

		fields, splitErr := SplitLine(line)
		if splitErr != nil {
			return nil, errors.Wrap(splitErr, errors.ErrorTypeSchema, "malformed header line")
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = strings.TrimSpace(f)
		}
		return names, nil
	}
}

// ResolveHeader builds the name→index mapping from the first line's
// fields. Later duplicates of a name are ignored; the first position
// wins.
func ResolveHeader(fields []string) Header {
	h := make(Header, len(fields))
	for i, name := range fields {
		name = strings.TrimSpace(name)
		if _, exists := h[name]; !exists {
			h[name] = i
		}
	}
	return h
}

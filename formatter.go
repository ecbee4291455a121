// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Field describes one column of the record stream. The descriptor set is
// fixed at [*Writer.Init] time; per-record values arrive positionally.
type Field struct {
	// Name is the field name used in the serialized output.
	Name string
}

// Formatter serializes one record into a reusable buffer.
//
// Implementations must append exactly one self-delimiting serialization
// that contains no embedded newline: the writer frames records by
// appending a single '\n' byte. Records are consumed immediately and
// must not be retained.
type Formatter interface {
	Describe(buf *bytes.Buffer, fields []Field, values []any) error
}

// TimeStyle selects how [*JSONFormatter] renders [time.Time] values.
type TimeStyle int

const (
	// TimeEpoch renders timestamps as seconds since the Unix epoch
	// with microsecond precision.
	TimeEpoch TimeStyle = iota

	// TimeISO8601 renders timestamps as RFC 3339 strings.
	TimeISO8601
)

// NewJSONFormatter returns a [*JSONFormatter] with the given time style.
func NewJSONFormatter(style TimeStyle) *JSONFormatter {
	return &JSONFormatter{TimeStyle: style}
}

// JSONFormatter serializes records as single-line JSON objects with the
// fields in descriptor order. String values are JSON-escaped, so the
// output never contains a literal newline.
type JSONFormatter struct {
	// TimeStyle selects the timestamp rendering.
	TimeStyle TimeStyle
}

var _ Formatter = &JSONFormatter{}

// Describe implements [Formatter].
func (f *JSONFormatter) Describe(buf *bytes.Buffer, fields []Field, values []any) error {
	if len(fields) != len(values) {
		return fmt.Errorf("tcplog: record has %d values for %d fields",
			len(values), len(fields))
	}
	buf.WriteByte('{')
	for idx, field := range fields {
		if idx > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := f.appendValue(buf, values[idx]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (f *JSONFormatter) appendValue(buf *bytes.Buffer, value any) error {
	if t, ok := value.(time.Time); ok && f.TimeStyle == TimeEpoch {
		epoch := float64(t.UnixMicro()) / 1e6
		buf.WriteString(strconv.FormatFloat(epoch, 'f', 6, 64))
		return nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Describe serializes records as single-line JSON in field order.
func TestJSONFormatterDescribe(t *testing.T) {
	tests := []struct {
		// name describes what this test case verifies.
		name string

		// style is the timestamp rendering style.
		style TimeStyle

		// fields are the record field descriptors.
		fields []Field

		// values are the record values, positionally matching fields.
		values []any

		// want is the exact expected serialization.
		want string

		// wantErr indicates whether we expect an error.
		wantErr bool
	}{
		{
			name:   "mixed scalar values",
			style:  TimeEpoch,
			fields: []Field{{Name: "msg"}, {Name: "count"}, {Name: "ok"}},
			values: []any{"hello", 3, true},
			want:   `{"msg":"hello","count":3,"ok":true}`,
		},

		{
			name:   "epoch timestamps have microsecond precision",
			style:  TimeEpoch,
			fields: []Field{{Name: "ts"}},
			values: []any{time.Unix(1700000000, 250000000).UTC()},
			want:   `{"ts":1700000000.250000}`,
		},

		{
			name:   "ISO 8601 timestamps",
			style:  TimeISO8601,
			fields: []Field{{Name: "ts"}},
			values: []any{time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)},
			want:   `{"ts":"2026-08-26T12:00:00Z"}`,
		},

		{
			name:   "strings with newlines are escaped",
			style:  TimeEpoch,
			fields: []Field{{Name: "msg"}},
			values: []any{"line one\nline two"},
			want:   `{"msg":"line one\nline two"}`,
		},

		{
			name:   "nil renders as JSON null",
			style:  TimeEpoch,
			fields: []Field{{Name: "missing"}},
			values: []any{nil},
			want:   `{"missing":null}`,
		},

		{
			name:   "empty record",
			style:  TimeEpoch,
			fields: []Field{},
			values: []any{},
			want:   `{}`,
		},

		{
			name:    "value count mismatch",
			style:   TimeEpoch,
			fields:  []Field{{Name: "a"}, {Name: "b"}},
			values:  []any{"only one"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewJSONFormatter(tt.style)

			var buf bytes.Buffer
			err := formatter.Describe(&buf, tt.fields, tt.values)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
			assert.False(t, strings.ContainsRune(buf.String(), '\n'),
				"serialization must not contain a literal newline")
		})
	}
}

// Describe appends to the buffer rather than replacing its contents, so
// the writer can reuse one buffer across records.
func TestJSONFormatterAppends(t *testing.T) {
	formatter := NewJSONFormatter(TimeEpoch)

	var buf bytes.Buffer
	buf.WriteString("prefix")
	err := formatter.Describe(&buf, []Field{{Name: "a"}}, []any{1})

	require.NoError(t, err)
	assert.Equal(t, `prefix{"a":1}`, buf.String())
}

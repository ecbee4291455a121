// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MergeOverrides applies non-empty override values and keeps defaults otherwise.
func TestSettingsMergeOverrides(t *testing.T) {
	defaults := Settings{
		Host:     "collector.example.com",
		Port:     4242,
		Retry:    false,
		TLS:      false,
		CertFile: "",
		Key:      "",
	}

	tests := []struct {
		// name describes what this test case verifies.
		name string

		// overrides is the configuration surface input.
		overrides map[string]string

		// want is the expected merged settings.
		want Settings

		// wantErr indicates whether we expect an error.
		wantErr bool
	}{
		{
			name:      "nil overrides keep defaults",
			overrides: nil,
			want:      defaults,
		},

		{
			name: "empty values keep defaults",
			overrides: map[string]string{
				"host": "", "tcpport": "", "retry": "", "tls": "", "cert": "", "key": "",
			},
			want: defaults,
		},

		{
			name: "all values overridden",
			overrides: map[string]string{
				"host":    "10.0.0.1",
				"tcpport": "6514",
				"retry":   "T",
				"tls":     "T",
				"cert":    "/etc/ssl/collector.pem",
				"key":     "s3cret",
			},
			want: Settings{
				Host:     "10.0.0.1",
				Port:     6514,
				Retry:    true,
				TLS:      true,
				CertFile: "/etc/ssl/collector.pem",
				Key:      "s3cret",
			},
		},

		{
			name:      "boolean convention: only literal T is true",
			overrides: map[string]string{"retry": "true", "tls": "yes"},
			want:      defaults, // both parse to false, same as the defaults
		},

		{
			name:      "non-numeric port is an error",
			overrides: map[string]string{"tcpport": "not-a-port"},
			wantErr:   true,
		},

		{
			name:      "port zero is an error",
			overrides: map[string]string{"tcpport": "0"},
			wantErr:   true,
		},

		{
			name:      "port above 65535 is an error",
			overrides: map[string]string{"tcpport": "70000"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := defaults.MergeOverrides(tt.overrides)

			if tt.wantErr {
				require.Error(t, err)
				// the receiver's values survive a failed merge
				assert.Equal(t, defaults, merged)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, merged)
		})
	}
}

// A "T"-convention override can also turn an enabled default off.
func TestSettingsMergeOverridesDisables(t *testing.T) {
	enabled := Settings{Host: "h", Port: 1, Retry: true, TLS: true}

	merged, err := enabled.MergeOverrides(map[string]string{"retry": "F", "tls": "false"})

	require.NoError(t, err)
	assert.False(t, merged.Retry)
	assert.False(t, merged.TLS)
}

// MergeOverrides does not mutate the receiver.
func TestSettingsMergeOverridesImmutable(t *testing.T) {
	defaults := Settings{Host: "a", Port: 1}

	_, err := defaults.MergeOverrides(map[string]string{"host": "b", "tcpport": "2"})

	require.NoError(t, err)
	assert.Equal(t, Settings{Host: "a", Port: 1}, defaults)
}

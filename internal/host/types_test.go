// SPDX-License-Identifier: MPL-2.0

package host_test

import (
	"testing"

	"github.com/invowk/langhost/internal/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session host.Session
		wantErr []error
	}{
		{
			name:    "valid",
			session: host.Session{User: "alice", Input: "in1", Output: "out1", Language: "R"},
		},
		{
			name:    "blank user",
			session: host.Session{User: "  ", Input: "in1", Output: "out1", Language: "R"},
			wantErr: []error{host.ErrInvalidUserName},
		},
		{
			name:    "user with a space",
			session: host.Session{User: "Ada Lovelace", Input: "in1", Output: "out1", Language: "R"},
		},
		{
			name:    "missing channels",
			session: host.Session{User: "alice", Language: "en-US"},
			wantErr: []error{host.ErrInvalidChannelID},
		},
		{
			name:    "language with spaces",
			session: host.Session{User: "alice", Input: "in1", Output: "out1", Language: "en US"},
			wantErr: []error{host.ErrInvalidLanguageID},
		},
		{
			name:    "everything empty",
			session: host.Session{},
			wantErr: []error{host.ErrInvalidUserName, host.ErrInvalidChannelID, host.ErrInvalidLanguageID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.session.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, host.ErrInvalidSession)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestSession_ValidateCountsFields(t *testing.T) {
	t.Parallel()

	err := host.Session{}.Validate()
	var invalid *host.InvalidSessionError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.FieldErrors, 4)
	assert.Equal(t, "invalid session: 4 field error(s)", err.Error())
}

func TestLibraryPath_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, host.LibraryPath("/opt/langrt/lib/liblangrt.so").Validate())
	require.ErrorIs(t, host.LibraryPath("").Validate(), host.ErrInvalidLibraryPath)
	require.ErrorIs(t, host.LibraryPath(" \t").Validate(), host.ErrInvalidLibraryPath)
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := host.DefaultConfig()
	assert.Equal(t, "langhost", cfg.Service)
	assert.Equal(t, host.DefaultStopTimeout, cfg.StopTimeout)
	require.ErrorIs(t, cfg.Validate(), host.ErrInvalidLibraryPath)
}

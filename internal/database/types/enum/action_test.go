package enum_test

import (
	"testing"

	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    enum.ActionKind
		wantErr bool
	}{
		{input: "mute", want: enum.ActionMute},
		{input: " Softban ", want: enum.ActionSoftban},
		{input: "BAN", want: enum.ActionBan},
		{input: "jail", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := enum.ParseActionKind(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, enum.ErrUnknownAction)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionKindVerb(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timed out", enum.ActionMute.Verb())
	assert.Equal(t, "softbanned", enum.ActionSoftban.Verb())
	assert.Equal(t, "Kick", enum.ActionKick.Title())
	assert.True(t, enum.ActionBan.IsRemoval())
	assert.False(t, enum.ActionSoftban.IsRemoval())
}

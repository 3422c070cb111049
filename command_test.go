package tavla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWireCommand(t *testing.T) {
	testCases := []struct {
		in       string
		expected WireCommand
		line     string
	}{
		{`{"type":"roll_dice"}`, WireCommand{Type: WireRollDice}, "roll"},
		{`{"type":"select","point":6,"index":2}`, WireCommand{Type: WireSelect, Point: 6, Index: 2}, "select 6 2"},
		{`{"type":"select_bar"}`, WireCommand{Type: WireSelectBar}, "select bar"},
		{`{"type":"move","to":3}`, WireCommand{Type: WireMove, To: 3}, "move 3"},
		{`{"type":"move","to":"off"}`, WireCommand{Type: WireMove, To: SpaceOff}, "move off"},
	}
	for _, tc := range testCases {
		cmd, err := ParseWireCommand([]byte(tc.in))
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.expected, *cmd)
		assert.Equal(t, tc.line, cmd.Line())
	}

	for _, in := range []string{
		`{`,
		`{"type":"resign"}`,
		`{"type":"select","point":0}`,
		`{"type":"select","point":6,"index":-1}`,
		`{"type":"move"}`,
		`{"type":"move","to":"bar"}`,
		`{"type":"move","to":25}`,
		`{"type":"move","to":300}`,
	} {
		_, err := ParseWireCommand([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestIsWireCommand(t *testing.T) {
	assert.True(t, IsWireCommand([]byte(` {"type":"roll_dice"}`)))
	assert.False(t, IsWireCommand([]byte("roll")))
}

func TestHelpText(t *testing.T) {
	for _, command := range []string{CommandRoll, CommandSelect, CommandMove, CommandBot} {
		assert.NotEmpty(t, HelpText[command], command)
	}
}

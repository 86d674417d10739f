package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary avoids short words to prevent partial collisions ("he" inside "The")
func TestModerator_Censor(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"plastic", "landfill", "styrofoam"}, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Single word keeps surrounding spaces",
			input:    "No plastic today",
			expected: "No ******* today",
			words:    []string{"plastic"},
		},
		{
			name:     "Repeated word",
			input:    "landfill landfill",
			expected: "******** ********",
			words:    []string{"landfill", "landfill"},
		},
		{
			name:     "Leet speak with internal punctuation",
			input:    "Avoid p.l.4.$.t.1.c ok",
			expected: "Avoid ************* ok",
			words:    []string{"plastic"},
		},
		{
			name:     "Uppercase and dashes, in order of appearance",
			input:    "L-A-N-D-F-I-L-L then PLASTIC",
			expected: "*************** then *******",
			words:    []string{"landfill", "plastic"},
		},
		{
			name:     "Accented text around a match",
			input:    "Un été sans styrofoam",
			expected: "Un été sans *********",
			words:    []string{"styrofoam"},
		},
		{
			name:     "Nothing to censor",
			input:    "Glass goes in the green bin",
			expected: "Glass goes in the green bin",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_Ignores_Noise_Only_Words(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary polluted with punctuation only entries
	mod, err := NewModerator([]string{"...", "", "landfill"}, replacementChar, log)
	req.NoError(err)

	// Then real words are still censored
	content, words := mod.Censor("Skip the landfill")
	req.Equal("Skip the ********", content)
	req.Equal([]string{"landfill"}, words)

	// Then punctuation is untouched
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_Empty_Dictionary_Is_Passthrough(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar, slog.Default())
	req.NoError(err)

	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
}

func TestModerator_Moderate_Detects_Language(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"landfill"}, replacementChar, slog.Default())
	req.NoError(err)

	result := mod.Moderate("Nous avons ramassé tous les déchets sur la plage ce matin avec les enfants du quartier")

	req.Equal("fr", result.Lang)
	req.Empty(result.Censored)
}

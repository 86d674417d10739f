package runtime

import (
	"challenge-chat/errors"
	"challenge-chat/moderation"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"words/en.txt":       {Data: []byte("plastic\r\nlandfill\n\n")},
		"words/fr.txt":       {Data: []byte("décharge\nplastic\n")},
		"words/README.md":    {Data: []byte("ignored")},
		"words/nested/x.txt": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(files).LoadAll("words")

	req.NoError(err)
	req.Equal([]string{"décharge", "landfill", "plastic"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_Empty_Directory(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{"words/en.txt": {Data: []byte("\n  \n")}}

	_, err := NewCensoredLoader(files).LoadAll("words")

	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestCensoredLoader_Embedded_Dictionaries(t *testing.T) {
	req := require.New(t)

	data, err := NewCensoredLoader(moderation.CensoredFS).LoadAll(moderation.CensoredDir)

	req.NoError(err)
	req.NotEmpty(data.Words)
	req.Contains(data.Languages, "en")
}

package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	content := bytes.Repeat([]byte(`{"title":"A title","states":{"First State":{}}}`), 64)

	for _, name := range []string{NameNop, NameGZip, NameLZ4, NameBrotli} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			encoded, err := codec.Encode(content)
			require.NoError(t, err)
			if name != NameNop {
				assert.Less(t, len(encoded), len(content))
			}

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, content, decoded)
		})
	}

	_, err := New("zstd")
	assert.Error(t, err)
}

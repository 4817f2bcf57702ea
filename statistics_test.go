package azplay

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	s := makeStatistics()
	s.update("ttt-0", 0, 0, 0)
	s.update("ttt-1", 3, 1, 0)
	s.update("ttt-1", 1, 1, 2)

	assert.Equal(t, []string{"ttt-0", "ttt-1"}, s.Creation)
	assert.Equal(t, []float32{3, 1}, s.Wins["ttt-1"])

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))
	assert.Equal(t, "ttt-0,ttt-1\n,\n,0.750\n,0.250\n", buf.String())

	filename := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, s.Dump(filename))
	bs, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(bs))
}

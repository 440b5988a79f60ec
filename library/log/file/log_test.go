package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteLog(t *testing.T) {
	name := filepath.Join(t.TempDir(), "match", "m1.log")
	l := NewFileLog(name)
	l.WriteLog("[roll] seat=%d value=%d", 0, 6)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(data), "[roll] seat=0 value=6")
}

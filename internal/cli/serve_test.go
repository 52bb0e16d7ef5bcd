package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePort(t *testing.T) {
	t.Run("flag unset keeps configured port", func(t *testing.T) {
		cmd := ServeCmd()
		assert.Equal(t, "9090", resolvePort(cmd, "9090"))
	})

	t.Run("explicit flag wins over configured port", func(t *testing.T) {
		cmd := ServeCmd()
		require.NoError(t, cmd.Flags().Set("port", "3000"))
		assert.Equal(t, "3000", resolvePort(cmd, "9090"))
	})

	t.Run("explicit flag equal to the default still wins", func(t *testing.T) {
		cmd := ServeCmd()
		require.NoError(t, cmd.Flags().Set("port", "8080"))
		assert.Equal(t, "8080", resolvePort(cmd, "9090"))
	})
}

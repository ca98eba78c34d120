package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/config"
)

func TestNewLogger(t *testing.T) {
	l, err := newLogger(config.Config{LogLevel: "debug", PrettyLogs: true})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger(config.Config{LogLevel: "loud"})
	assert.ErrorContains(t, err, "invalid LOG_LEVEL")
}

func TestImport_RequiresOneFile(t *testing.T) {
	rootCmd.SetArgs([]string{"import"})
	assert.Error(t, rootCmd.Execute())
}

func TestImport_MissingFile(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	rootCmd.SetArgs([]string{"import", "does-not-exist.yaml"})
	assert.Error(t, rootCmd.Execute())
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nTRACKER_TEST_A=one\nexport TRACKER_TEST_B=\"two\"\nbroken line\nTRACKER_TEST_C=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TRACKER_TEST_C", "from-env")
	// Registered through t.Setenv so the test environment is restored.
	t.Setenv("TRACKER_TEST_A", "")
	os.Unsetenv("TRACKER_TEST_A")
	t.Setenv("TRACKER_TEST_B", "")
	os.Unsetenv("TRACKER_TEST_B")

	loadEnvFile(path)

	assert.Equal(t, "one", os.Getenv("TRACKER_TEST_A"))
	assert.Equal(t, "two", os.Getenv("TRACKER_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("TRACKER_TEST_C"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	loadEnvFile(filepath.Join(t.TempDir(), "absent"))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "refresh", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("mint"))
}

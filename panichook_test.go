package scripthost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallPanicHookWritesDumpAndRepanics(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "crash.txt")
	var logged string
	hooks := HostHooks{LogCritical: func(msg string) { logged = msg }}

	run := func() {
		defer InstallPanicHook(dumpPath, hooks)()
		panic("boom")
	}

	assert.PanicsWithValue(t, "boom", run)
	assert.Contains(t, logged, "boom")

	data, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
}

func TestInstallPanicHookNoOpWhenNoPanic(t *testing.T) {
	hooks := HostHooks{}
	run := func() {
		defer InstallPanicHook("", hooks)()
	}
	assert.NotPanics(t, run)
}

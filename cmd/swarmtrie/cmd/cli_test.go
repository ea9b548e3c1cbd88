package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t testing.TB, storePath string, args ...string) (string, error) {
	flags.content.output, flags.content.pin = "", false
	flags.manifest.ref, flags.manifest.prefix, flags.manifest.output = "", "", ""
	flags.manifest.metadata = map[string]string{}
	flags.config.output = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{
		"--store", "localfs",
		"--store-path", storePath,
		"--loglevel", "none",
		"--redundancy", "MEDIUM",
	}, args...))
	err := rootCmd.Execute()
	t.Logf("swarmtrie %s", strings.Join(args, " "))
	return out.String(), err
}

func writeFile(t testing.TB, dir, name string, size int) (string, []byte) {
	data := rand.Bytes(size)
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, data, 0o600))
	return file, data
}

func TestPutGet(t *testing.T) {
	store, dir := t.TempDir(), t.TempDir()
	file, data := writeFile(t, dir, "upload", 5*swarm.ChunkSize+3)

	out, err := runCmd(t, store, "put", file)
	require.NoError(t, err)
	ref := strings.TrimSpace(out)
	_, err = swarm.ParseHexReference(ref)
	require.NoError(t, err)

	// uploads are deterministic
	again, err := runCmd(t, store, "put", file)
	require.NoError(t, err)
	assert.Equal(t, ref, strings.TrimSpace(again))

	downloaded := filepath.Join(dir, "download")
	_, err = runCmd(t, store, "get", ref, "-o", downloaded)
	require.NoError(t, err)
	read, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, data, read)

	out, err = runCmd(t, store, "get", ref)
	require.NoError(t, err)
	assert.Equal(t, data, []byte(out))

	out, err = runCmd(t, store, "traverse", ref)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// 6 leaves, their parent and its parities
	assert.Greater(t, len(lines), 7)
	assert.NotContains(t, out, "missing")

	_, err = runCmd(t, store, "get", "not-a-reference")
	assert.Error(t, err)
}

func TestManifestCommands(t *testing.T) {
	store, dir := t.TempDir(), t.TempDir()
	file1, data1 := writeFile(t, dir, "one", 100)
	file2, data2 := writeFile(t, dir, "two", 2*swarm.ChunkSize)

	out, err := runCmd(t, store, "manifest", "add", "docs/one.txt", file1, "--meta", "Content-Type=text/plain")
	require.NoError(t, err)
	m1 := strings.TrimSpace(out)

	out, err = runCmd(t, store, "manifest", "add", "--manifest", m1, "docs/two.bin", file2)
	require.NoError(t, err)
	m2 := strings.TrimSpace(out)
	require.NotEqual(t, m1, m2)

	out, err = runCmd(t, store, "manifest", "ls", m2, "--prefix", "docs/")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "docs/one.txt Content-Type=text/plain")
	assert.Contains(t, lines[1], "docs/two.bin")

	out, err = runCmd(t, store, "manifest", "get", m2, "docs/one.txt")
	require.NoError(t, err)
	assert.Equal(t, data1, []byte(out))

	downloaded := filepath.Join(dir, "two.bin")
	_, err = runCmd(t, store, "manifest", "get", m2, "docs/two.bin", "-o", downloaded)
	require.NoError(t, err)
	read, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, data2, read)

	out, err = runCmd(t, store, "manifest", "rm", m2, "docs/one.txt")
	require.NoError(t, err)
	m3 := strings.TrimSpace(out)

	_, err = runCmd(t, store, "manifest", "get", m3, "docs/one.txt")
	assert.Error(t, err)

	out, err = runCmd(t, store, "traverse", m3)
	require.NoError(t, err)
	assert.Contains(t, out, "manifest")
}

func TestPinCommands(t *testing.T) {
	store, dir := t.TempDir(), t.TempDir()
	file, _ := writeFile(t, dir, "upload", 10)

	out, err := runCmd(t, store, "put", file)
	require.NoError(t, err)
	ref := strings.TrimSpace(out)

	_, err = runCmd(t, store, "pin", "add", ref)
	require.NoError(t, err)

	out, err = runCmd(t, store, "pin", "ls")
	require.NoError(t, err)
	assert.Equal(t, ref, strings.TrimSpace(out))

	_, err = runCmd(t, store, "pin", "rm", ref)
	require.NoError(t, err)

	_, err = runCmd(t, store, "delete", ref)
	require.NoError(t, err)

	_, err = runCmd(t, store, "get", ref)
	assert.Error(t, err)
}

func TestConfigGenerate(t *testing.T) {
	store, dir := t.TempDir(), t.TempDir()
	target := filepath.Join(dir, "conf", "swarmtrie.yaml")

	_, err := runCmd(t, store, "config", "generate", "-o", target)
	require.NoError(t, err)

	generated, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(generated), "backend: localfs")
	assert.Contains(t, string(generated), "level: MEDIUM")
	assert.Contains(t, string(generated), store)

	out, err := runCmd(t, store, "config", "generate")
	require.NoError(t, err)
	assert.Equal(t, string(generated), out)
}

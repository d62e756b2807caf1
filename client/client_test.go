package client

import (
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSpock/tftp-server/server"
	"github.com/stretchr/testify/assert"
)

func startTestServer(t *testing.T, rootDir string) int {
	t.Helper()
	s, err := server.Init(net.ParseIP("127.0.0.1"), 0, rootDir, 300*time.Millisecond, 5, 0, 0)
	if err != nil {
		t.Fatalf(`Error creating server: %v`, err)
	}

	cl := make(chan bool, 1)
	go func() {
		_ = s.Listen(cl)
	}()
	t.Cleanup(func() {
		s.StopListening(cl)
		time.Sleep(150 * time.Millisecond)
		s.Conn.Close()
	})
	return s.LocalAddr().(*net.UDPAddr).Port
}

func testConfig() Config {
	cfg := DefaultConfig
	cfg.Timeout = 500 * time.Millisecond
	return cfg
}

func writeRandomFile(t *testing.T, path string, size int) []byte {
	t.Helper()
	content := make([]byte, size)
	rand.Read(content)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf(`Error while preparing test file: %v`, err)
	}
	return content
}

func TestFetchFile(t *testing.T) {
	root := t.TempDir()
	content := writeRandomFile(t, filepath.Join(root, "hello.txt"), 1500)
	port := startTestServer(t, root)

	local := filepath.Join(t.TempDir(), "hello.txt")
	cfg := testConfig()
	err := FetchFile(net.ParseIP("127.0.0.1"), port, "hello.txt", local, &cfg)
	if err != nil {
		t.Fatalf(`Error while fetching file: %v`, err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf(`Error while reading fetched file: %v`, err)
	}
	assert.Equal(t, content, got, "fetched file is not byte-identical")
}

// A file of exactly two full blocks ends with an empty DATA packet.
func TestFetchFileBlockAligned(t *testing.T) {
	root := t.TempDir()
	content := writeRandomFile(t, filepath.Join(root, "aligned.bin"), 1024)
	port := startTestServer(t, root)

	local := filepath.Join(t.TempDir(), "aligned.bin")
	cfg := testConfig()
	err := FetchFile(net.ParseIP("127.0.0.1"), port, "aligned.bin", local, &cfg)
	if err != nil {
		t.Fatalf(`Error while fetching file: %v`, err)
	}

	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf(`Error while reading fetched file: %v`, err)
	}
	assert.Equal(t, content, got, "fetched file is not byte-identical")
}

func TestFetchMissingFile(t *testing.T) {
	root := t.TempDir()
	port := startTestServer(t, root)

	local := filepath.Join(t.TempDir(), "missing.txt")
	cfg := testConfig()
	err := FetchFile(net.ParseIP("127.0.0.1"), port, "missing.txt", local, &cfg)
	assert.Error(t, err, "fetching a missing file should fail")

	// the local file is cleaned up again
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err), "local file should have been removed")
}

func TestPutFile(t *testing.T) {
	root := t.TempDir()
	port := startTestServer(t, root)

	srcDir := t.TempDir()
	content := writeRandomFile(t, filepath.Join(srcDir, "upload.bin"), 1500)

	cfg := testConfig()
	err := PutFile(net.ParseIP("127.0.0.1"), port, filepath.Join(srcDir, "upload.bin"), "upload.bin", &cfg)
	if err != nil {
		t.Fatalf(`Error while uploading file: %v`, err)
	}

	got, err := os.ReadFile(filepath.Join(root, "upload.bin"))
	if err != nil {
		t.Fatalf(`Error while reading uploaded file: %v`, err)
	}
	assert.Equal(t, content, got, "uploaded file is not byte-identical")
}

func TestPutFileBlockAligned(t *testing.T) {
	root := t.TempDir()
	port := startTestServer(t, root)

	srcDir := t.TempDir()
	content := writeRandomFile(t, filepath.Join(srcDir, "aligned.bin"), 1024)

	cfg := testConfig()
	err := PutFile(net.ParseIP("127.0.0.1"), port, filepath.Join(srcDir, "aligned.bin"), "aligned.bin", &cfg)
	if err != nil {
		t.Fatalf(`Error while uploading file: %v`, err)
	}

	got, err := os.ReadFile(filepath.Join(root, "aligned.bin"))
	if err != nil {
		t.Fatalf(`Error while reading uploaded file: %v`, err)
	}
	assert.Equal(t, content, got, "uploaded file is not byte-identical")
}

func TestPutMissingLocalFile(t *testing.T) {
	root := t.TempDir()
	port := startTestServer(t, root)

	cfg := testConfig()
	err := PutFile(net.ParseIP("127.0.0.1"), port, filepath.Join(t.TempDir(), "nope.bin"), "nope.bin", &cfg)
	assert.Error(t, err, "uploading a missing local file should fail")
}

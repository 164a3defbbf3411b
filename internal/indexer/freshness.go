package indexer

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/highwayhash"
)

const hashFile = ".docs_hash"

var freshnessKey = []byte("concordance-kb-freshness-key-32b")

// Freshness detects changes to the document folder without reading file
// contents: the token covers sorted names, sizes and modification times.
type Freshness struct {
	DocsDir    string
	PersistDir string
}

// Compute returns the current token, or "" when the docs directory does not exist.
func (f Freshness) Compute() (string, error) {
	if _, err := os.Stat(f.DocsDir); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	files, err := listPDFs(f.DocsDir)
	if err != nil {
		return "", err
	}
	h, err := highwayhash.New128(freshnessKey)
	if err != nil {
		return "", err
	}
	var num [8]byte
	for _, info := range files {
		h.Write([]byte(info.Name()))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(num[:], uint64(info.Size()))
		h.Write(num[:])
		binary.LittleEndian.PutUint64(num[:], uint64(info.ModTime().UnixNano()))
		h.Write(num[:])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Stored returns the token saved by the last successful build, or "".
func (f Freshness) Stored() string {
	b, err := os.ReadFile(filepath.Join(f.PersistDir, hashFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Save records token as the state of the current index.
func (f Freshness) Save(token string) error {
	if err := os.MkdirAll(f.PersistDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.PersistDir, hashFile), []byte(token), 0o644)
}

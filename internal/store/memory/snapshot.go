package memory

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

// Snapshot files are a fixed header, a JSON body and a CRC32 footer over the
// body.
const (
	MagicBytes    uint32 = 0x41435258 // "ACRX"
	FormatVersion uint32 = 1
	HeaderSize    int    = 16
	FooterSize    int    = 4
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot")

type snapshotBody struct {
	Terms      map[string]index.PostingList `json:"terms"`
	DocLengths map[string]int               `json:"doc_lengths"`
}

// Open returns a store that loads path on startup (when it exists) and
// writes it back on Close.
func Open(path string) (*Store, error) {
	s := New()
	s.snapshot = path
	if err := s.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Save atomically writes the full store to path. It writes to a .tmp file
// first and renames on success; the .tmp file never outlives a failed Save.
func (s *Store) Save(path string) (err error) {
	s.mu.RLock()
	body, err := json.Marshal(snapshotBody{Terms: s.terms, DocLengths: s.docLengths})
	termCount := len(s.terms)
	docCount := len(s.docLengths)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(termCount))
	binary.LittleEndian.PutUint32(header[12:16], uint32(docCount))
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer, crc32.ChecksumIEEE(body))

	for _, chunk := range [][]byte{header, body, footer} {
		if _, err := f.Write(chunk); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// Load replaces the store contents with the snapshot at path.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return fmt.Errorf("%w: %d bytes", ErrCorruptSnapshot, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicBytes {
		return fmt.Errorf("%w: bad magic bytes %x", ErrCorruptSnapshot, magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}
	body := data[HeaderSize : len(data)-FooterSize]
	want := binary.LittleEndian.Uint32(data[len(data)-FooterSize:])
	if crc32.ChecksumIEEE(body) != want {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	var snap snapshotBody
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Terms == nil {
		snap.Terms = make(map[string]index.PostingList)
	}
	if snap.DocLengths == nil {
		snap.DocLengths = make(map[string]int)
	}
	var total int64
	for _, n := range snap.DocLengths {
		total += int64(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = snap.Terms
	s.docLengths = snap.DocLengths
	s.totalLength = total
	return nil
}

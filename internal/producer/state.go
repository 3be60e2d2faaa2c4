// Package producer drives the L2 block-production loop: for each L1
// block the fetcher yields, it applies derived items to the EVM runtime
// in order and seals one L2 block. The L1 height cursor is persisted once,
// at bootstrap; a restart resumes from it plus the EVM block count.
package producer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/novo-network/biterc/internal/domain"
)

const (
	heightMetaFile    = "FETCHER_RUNTIME_height.meta"
	chainCfgMetaFile  = "FETCHER_RUNTIME_chain_cfg.meta"
	heightMetaLen     = 8
	tmpSuffix         = ".tmp"
	persistedFileMode = 0o644
)

// Store persists the fetcher cursor files under a single datadir. Every
// write lands on a temp file and is renamed into place, so a crash
// mid-write never leaves a half-written cursor file for the next boot to
// read. Kept on the standard library: the wire format here is
// byte-exact per spec (an 8-byte big-endian counter and a pretty-printed
// JSON snapshot), so there is no parser/serializer concern a third-party
// library would meaningfully simplify.
type Store struct {
	dir string
}

// NewStore opens a Store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("producer: create datadir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// LoadHeight reads the persisted next-L1-height cursor. A missing file
// means a fresh datadir: height 0.
func (s *Store) LoadHeight() (uint64, error) {
	raw, err := os.ReadFile(s.heightPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("producer: read height cursor: %w", err)
	}
	if len(raw) != heightMetaLen {
		return 0, fmt.Errorf("producer: height cursor has %d bytes, want %d", len(raw), heightMetaLen)
	}
	return binary.BigEndian.Uint64(raw), nil
}

// SaveHeight atomically persists the next L1 height to fetch.
func (s *Store) SaveHeight(height uint64) error {
	var buf [heightMetaLen]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return s.writeAtomic(s.heightPath(), buf[:])
}

// LoadChainConfig reads the last applied chain configuration snapshot.
// A missing file means the node has not yet observed its first Config
// item and the caller must bootstrap.
func (s *Store) LoadChainConfig() (*domain.ChainConfig, bool, error) {
	raw, err := os.ReadFile(s.chainCfgPath())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("producer: read chain config cursor: %w", err)
	}
	var cfg domain.ChainConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, false, fmt.Errorf("producer: decode chain config cursor: %w", err)
	}
	return &cfg, true, nil
}

// SaveChainConfig atomically persists cfg as the new chain-config
// snapshot, pretty-printed so the datadir is operator-inspectable.
func (s *Store) SaveChainConfig(cfg *domain.ChainConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("producer: encode chain config cursor: %w", err)
	}
	return s.writeAtomic(s.chainCfgPath(), raw)
}

func (s *Store) heightPath() string   { return filepath.Join(s.dir, heightMetaFile) }
func (s *Store) chainCfgPath() string { return filepath.Join(s.dir, chainCfgMetaFile) }

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, persistedFileMode); err != nil {
		return fmt.Errorf("producer: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("producer: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

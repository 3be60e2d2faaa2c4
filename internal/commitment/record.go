// Package commitment implements the 40-byte script-embedded commitment
// record that binds an L1 output to an off-chain DA payload.
package commitment

import (
	"encoding/binary"
	"fmt"
)

// RecordLen is the fixed on-wire length of a Commitment Record.
const RecordLen = 40

// Tx type tags.
const (
	TxTypeDeposit uint8 = 0
	TxTypeConfig  uint8 = 1
)

// Record is the 40-byte, big-endian-field commitment embedded in a
// Bitcoin OP_RETURN output.
type Record struct {
	ChainID uint32
	TxType  uint8
	DAType  uint8
	Version uint8
	Filling uint8
	Hash    [32]byte
}

// Encode packs r into the 40-byte wire layout. Bytes 6 and 7 (version,
// filling) are always forced to zero regardless of r's fields, since the
// only legal encoding has both reserved.
func Encode(r Record) [RecordLen]byte {
	var out [RecordLen]byte
	binary.BigEndian.PutUint32(out[0:4], r.ChainID)
	out[4] = r.TxType
	out[5] = r.DAType
	out[6] = 0
	out[7] = 0
	copy(out[8:40], r.Hash[:])
	return out
}

// Decode unpacks a 40-byte buffer into a Record. Byte 6 is read as
// version, byte 7 as filling; Encode writes both as zero, so a valid
// record round-trips.
func Decode(b []byte) (Record, error) {
	if len(b) != RecordLen {
		return Record{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedCommitment, len(b), RecordLen)
	}
	var r Record
	r.ChainID = binary.BigEndian.Uint32(b[0:4])
	r.TxType = b[4]
	r.DAType = b[5]
	r.Version = b[6]
	r.Filling = b[7]
	copy(r.Hash[:], b[8:40])
	return r, nil
}

// Check validates r against the fetcher's current chain id and the set of
// DA type tags the active DAServiceManager has registered.
func Check(r Record, expectedChainID uint32, registeredDA map[uint8]struct{}) error {
	if r.TxType != TxTypeConfig && r.ChainID != expectedChainID {
		return fmt.Errorf("%w: record has %d, expected %d", ErrChainIDMismatch, r.ChainID, expectedChainID)
	}
	if r.TxType != TxTypeDeposit && r.TxType != TxTypeConfig {
		return fmt.Errorf("%w: %d", ErrBadTxType, r.TxType)
	}
	if _, ok := registeredDA[r.DAType]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDA, r.DAType)
	}
	if r.Version != 0 || r.Filling != 0 {
		return fmt.Errorf("%w: version=%d filling=%d", ErrBadVersion, r.Version, r.Filling)
	}
	return nil
}

// DALocator prepends the record's DA type tag to its hash body, yielding
// the typed hash (H in the spec) the DA manager dispatches on.
func (r Record) DALocator() []byte {
	out := make([]byte, 0, 1+len(r.Hash))
	out = append(out, r.DAType)
	out = append(out, r.Hash[:]...)
	return out
}

package commitment

import (
	"bytes"
	"errors"
	"testing"
)

// TestEncodeS1 exercises the concrete S1 scenario from the spec: a known
// record must encode to an exact byte string.
func TestEncodeS1(t *testing.T) {
	var hash [32]byte
	for i := range hash {
		hash[i] = 0xAA
	}
	r := Record{ChainID: 0x0000FFFF, TxType: 0, DAType: 3, Version: 0, Filling: 0, Hash: hash}
	got := Encode(r)

	want := make([]byte, 0, RecordLen)
	want = append(want, 0x00, 0x00, 0xFF, 0xFF, 0x00, 0x03, 0x00, 0x00)
	for i := 0; i < 32; i++ {
		want = append(want, 0xAA)
	}
	if !bytes.Equal(got[:], want) {
		t.Fatalf("encode mismatch:\n got  %x\n want %x", got, want)
	}
}

// TestRoundTrip is invariant 1: decode(encode(r)) == r for valid records.
func TestRoundTrip(t *testing.T) {
	cases := []Record{
		{ChainID: 1, TxType: TxTypeDeposit, DAType: 0},
		{ChainID: 0xFFFFFFFF, TxType: TxTypeConfig, DAType: 3},
	}
	for i := range cases {
		for j := range cases[i].Hash {
			cases[i].Hash[j] = byte(i + j)
		}
	}
	for _, r := range cases {
		enc := Encode(r)
		got, err := Decode(enc[:])
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != r {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
		}
	}
}

func TestDecodeWrongLength(t *testing.T) {
	if _, err := Decode(make([]byte, 39)); !errors.Is(err, ErrMalformedCommitment) {
		t.Fatalf("expected ErrMalformedCommitment, got %v", err)
	}
	if _, err := Decode(make([]byte, 41)); !errors.Is(err, ErrMalformedCommitment) {
		t.Fatalf("expected ErrMalformedCommitment, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	registered := map[uint8]struct{}{0: {}, 3: {}}

	base := Record{ChainID: 7, TxType: TxTypeDeposit, DAType: 3, Version: 0, Filling: 0}

	t.Run("ok", func(t *testing.T) {
		if err := Check(base, 7, registered); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		r := base
		r.ChainID = 8
		if err := Check(r, 7, registered); !errors.Is(err, ErrChainIDMismatch) {
			t.Fatalf("expected ErrChainIDMismatch, got %v", err)
		}
	})

	t.Run("config bypasses chain id", func(t *testing.T) {
		r := base
		r.TxType = TxTypeConfig
		r.ChainID = 999
		if err := Check(r, 7, registered); err != nil {
			t.Fatalf("config record should bypass chain id check: %v", err)
		}
	})

	t.Run("bad tx type", func(t *testing.T) {
		r := base
		r.TxType = 2
		if err := Check(r, 7, registered); !errors.Is(err, ErrBadTxType) {
			t.Fatalf("expected ErrBadTxType, got %v", err)
		}
	})

	t.Run("unknown da", func(t *testing.T) {
		r := base
		r.DAType = 1
		if err := Check(r, 7, registered); !errors.Is(err, ErrUnknownDA) {
			t.Fatalf("expected ErrUnknownDA, got %v", err)
		}
	})

	t.Run("bad version", func(t *testing.T) {
		r := base
		r.Version = 1
		if err := Check(r, 7, registered); !errors.Is(err, ErrBadVersion) {
			t.Fatalf("expected ErrBadVersion (version), got %v", err)
		}
		r = base
		r.Filling = 1
		if err := Check(r, 7, registered); !errors.Is(err, ErrBadVersion) {
			t.Fatalf("expected ErrBadVersion (filling), got %v", err)
		}
	})
}

func TestDALocator(t *testing.T) {
	var hash [32]byte
	hash[0] = 0x01
	r := Record{DAType: 2, Hash: hash}
	loc := r.DALocator()
	if len(loc) != 33 {
		t.Fatalf("expected 33 bytes, got %d", len(loc))
	}
	if loc[0] != 2 {
		t.Fatalf("expected type tag 2, got %d", loc[0])
	}
	if !bytes.Equal(loc[1:], hash[:]) {
		t.Fatalf("locator body mismatch")
	}
}

func TestScriptPubKeyShape(t *testing.T) {
	r := Record{ChainID: 1, TxType: 0, DAType: 0}
	script := ScriptPubKey(r)
	if len(script) != 42 {
		t.Fatalf("expected 42-byte script, got %d", len(script))
	}
	body, ok := ExtractRecordBytes(script)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	if len(body) != RecordLen {
		t.Fatalf("expected %d-byte body, got %d", RecordLen, len(body))
	}

	if _, ok := ExtractRecordBytes([]byte{0x6a, 0x05, 1, 2, 3}); ok {
		t.Fatalf("expected non-matching shape to be rejected")
	}
}

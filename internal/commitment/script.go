package commitment

// Bitcoin script opcodes relevant to commitment embedding. Duplicated here
// rather than importing btcsuite/btcd/txscript's opcode table so this leaf
// package (shared by the codec and the fetcher's output decoder) stays
// free of the Bitcoin tx-building dependency surface.
const (
	opReturn       = 0x6a
	opPushBytes40  = 0x28
	scriptLen      = 2 + RecordLen
)

// ScriptPubKey builds the exact 42-byte scriptPubKey a commitment record
// is embedded in: OP_RETURN OP_PUSHBYTES_40 <40 bytes>.
func ScriptPubKey(r Record) []byte {
	enc := Encode(r)
	out := make([]byte, 0, scriptLen)
	out = append(out, opReturn, opPushBytes40)
	out = append(out, enc[:]...)
	return out
}

// ExtractRecordBytes returns the 40-byte commitment payload if script is
// exactly shaped like OP_RETURN OP_PUSHBYTES_40 <40 bytes>, and false
// otherwise. Any other scriptPubKey shape is ignored by the decoder, per
// spec.
func ExtractRecordBytes(script []byte) ([]byte, bool) {
	if len(script) != scriptLen {
		return nil, false
	}
	if script[0] != opReturn || script[1] != opPushBytes40 {
		return nil, false
	}
	return script[2:], true
}

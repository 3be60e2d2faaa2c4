package btctx

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GetEthFromAddress derives the EVM sender address for a deposit from the
// scriptPubKey of the first input's referenced previous output.
//
// If the script is a bare P2PK script (it embeds the spender's raw public
// key directly), the EVM address is keccak256(keccak256(pubkey))[0:20] —
// the double-keccak mirrors the original's use of a hash-of-a-hash to
// keep P2PK-derived addresses visually distinct from standard Ethereum
// keccak(pubkey) addresses. For every other script shape (P2PKH, P2WPKH,
// P2SH, ...) there is no recoverable public key in the scriptPubKey
// alone, so the EVM address is a 20-byte Hash160 fingerprint of the
// script itself. This is a best-effort fingerprint, not a standard EVM
// address derivation, and implementations must match it bit-for-bit to
// preserve L2-address continuity for existing deposits.
func (b *Builder) GetEthFromAddress(ctx context.Context, txid *chainhash.Hash, vout uint32) (common.Address, error) {
	tx, err := b.btc.GetRawTransaction(txid)
	if err != nil {
		return common.Address{}, fmt.Errorf("btctx: lookup prev tx %s: %w", txid, err)
	}
	if int(vout) >= len(tx.MsgTx().TxOut) {
		return common.Address{}, fmt.Errorf("btctx: utxo not found: %s:%d", txid, vout)
	}
	script := tx.MsgTx().TxOut[vout].PkScript

	if pubkey, ok := extractP2PKPubKey(script); ok {
		h := crypto.Keccak256(crypto.Keccak256(pubkey))
		var addr common.Address
		copy(addr[:], h[:20])
		return addr, nil
	}

	h160 := btcutil.Hash160(script)
	var addr common.Address
	copy(addr[:], h160)
	return addr, nil
}

// extractP2PKPubKey returns the embedded public key and true if script is
// shaped like a bare pay-to-pubkey scriptPubKey: <pushdata len 33 or 65>
// OP_CHECKSIG.
func extractP2PKPubKey(script []byte) ([]byte, bool) {
	class := txscript.GetScriptClass(script)
	if class != txscript.PubKeyTy {
		return nil, false
	}
	pushes, err := txscript.PushedData(script)
	if err != nil || len(pushes) != 1 {
		return nil, false
	}
	pk := pushes[0]
	if len(pk) != 33 && len(pk) != 65 {
		return nil, false
	}
	return pk, true
}

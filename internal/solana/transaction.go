package solana

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureLength is the size of an ed25519 signature.
const SignatureLength = 64

// ErrMissingSigner is returned when a required signer was not supplied to Sign.
var ErrMissingSigner = errors.New("missing signer")

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// messageHeader counts signer and read-only accounts.
type messageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// compiledInstruction references accounts by index into the message key list.
type compiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a compiled legacy transaction message.
type Message struct {
	Header          messageHeader
	AccountKeys     []PublicKey
	RecentBlockhash PublicKey
	Instructions    []compiledInstruction
}

// Transaction is a legacy transaction: signatures plus a message.
type Transaction struct {
	Signatures [][]byte
	Message    Message
}

// NewTransaction compiles instructions into a legacy message paid by payer.
func NewTransaction(instructions []Instruction, recentBlockhash string, payer PublicKey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, errors.New("transaction requires at least one instruction")
	}
	blockhash, err := ParsePublicKey(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	// Merge account flags in order of first appearance; payer is always first.
	type entry struct {
		meta  AccountMeta
		order int
	}
	merged := map[PublicKey]*entry{
		payer: {meta: AccountMeta{PublicKey: payer, IsSigner: true, IsWritable: true}, order: 0},
	}
	next := 1
	add := func(m AccountMeta) {
		if e, ok := merged[m.PublicKey]; ok {
			e.meta.IsSigner = e.meta.IsSigner || m.IsSigner
			e.meta.IsWritable = e.meta.IsWritable || m.IsWritable
			return
		}
		merged[m.PublicKey] = &entry{meta: m, order: next}
		next++
	}
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc)
		}
		add(AccountMeta{PublicKey: ix.ProgramID})
	}

	ordered := make([]*entry, len(merged))
	for _, e := range merged {
		ordered[e.order] = e
	}

	// Group: signer+writable, signer+readonly, writable, readonly.
	var groups [4][]PublicKey
	for _, e := range ordered {
		switch {
		case e.meta.IsSigner && e.meta.IsWritable:
			groups[0] = append(groups[0], e.meta.PublicKey)
		case e.meta.IsSigner:
			groups[1] = append(groups[1], e.meta.PublicKey)
		case e.meta.IsWritable:
			groups[2] = append(groups[2], e.meta.PublicKey)
		default:
			groups[3] = append(groups[3], e.meta.PublicKey)
		}
	}

	keys := make([]PublicKey, 0, len(ordered))
	for _, g := range groups {
		keys = append(keys, g...)
	}
	if len(keys) > 256 {
		return nil, fmt.Errorf("too many accounts: %d", len(keys))
	}

	index := make(map[PublicKey]uint8, len(keys))
	for i, k := range keys {
		index[k] = uint8(i)
	}

	msg := Message{
		Header: messageHeader{
			NumRequiredSignatures:       uint8(len(groups[0]) + len(groups[1])),
			NumReadonlySignedAccounts:   uint8(len(groups[1])),
			NumReadonlyUnsignedAccounts: uint8(len(groups[3])),
		},
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
	}
	for _, ix := range instructions {
		ci := compiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Data:           ix.Data,
		}
		for _, acc := range ix.Accounts {
			ci.Accounts = append(ci.Accounts, index[acc.PublicKey])
		}
		msg.Instructions = append(msg.Instructions, ci)
	}

	return &Transaction{Message: msg}, nil
}

// Serialize encodes the message in wire format.
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)

	writeCompactU16(&buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf.Write(k[:])
	}
	buf.Write(m.RecentBlockhash[:])

	writeCompactU16(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeCompactU16(&buf, len(ix.Accounts))
		buf.Write(ix.Accounts)
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// Signers returns the keys that must sign, in signature order.
func (m *Message) Signers() []PublicKey {
	return m.AccountKeys[:m.Header.NumRequiredSignatures]
}

// Sign signs the message with the given keypairs. Every required signer must be present.
func (tx *Transaction) Sign(signers ...*Keypair) error {
	byKey := make(map[PublicKey]*Keypair, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey()] = s
	}

	msg := tx.Message.Serialize()
	required := tx.Message.Signers()
	sigs := make([][]byte, len(required))
	for i, pk := range required {
		kp, ok := byKey[pk]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingSigner, pk)
		}
		sigs[i] = kp.Sign(msg)
	}
	tx.Signatures = sigs
	return nil
}

// Signature returns the base58 transaction id (the first signature).
func (tx *Transaction) Signature() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}

// Serialize encodes the signed transaction in wire format.
func (tx *Transaction) Serialize() ([]byte, error) {
	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		return nil, fmt.Errorf("transaction has %d signatures, needs %d",
			len(tx.Signatures), tx.Message.Header.NumRequiredSignatures)
	}

	var buf bytes.Buffer
	writeCompactU16(&buf, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if len(sig) != SignatureLength {
			return nil, fmt.Errorf("signature length %d", len(sig))
		}
		buf.Write(sig)
	}
	buf.Write(tx.Message.Serialize())
	return buf.Bytes(), nil
}

// writeCompactU16 writes the shortvec length encoding.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

// readCompactU16 decodes a shortvec length and returns it with the bytes consumed.
func readCompactU16(data []byte) (int, int, error) {
	var v, shift int
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, errors.New("compact-u16: unexpected end of data")
		}
		b := data[i]
		v |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errors.New("compact-u16: value too long")
}

package domain

import (
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
)

// TargetAccount is one positional account of a cloning target. Order is
// meaningful: program logic addresses accounts by position, not by name.
type TargetAccount struct {
	Pubkey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// CloningTarget is the structural template extracted from an observed swap
// instruction: program identity, ordered accounts and raw data bytes. It is
// the detective's output and the forge's input, and crosses the cache/process
// boundary in serialized form.
type CloningTarget struct {
	ProgramID solana.PublicKey `json:"programId"`
	Accounts  []TargetAccount  `json:"accounts"`
	Data      []byte           `json:"data"`
}

// TargetFromInstruction snapshots a decoded instruction as a cloning target.
// Accounts and data are copied so the target survives its source transaction.
func TargetFromInstruction(ix DecodedInstruction) *CloningTarget {
	accounts := make([]TargetAccount, len(ix.Accounts))
	for i, acc := range ix.Accounts {
		accounts[i] = TargetAccount{
			Pubkey:     acc.Pubkey,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		}
	}
	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)

	return &CloningTarget{
		ProgramID: ix.ProgramID,
		Accounts:  accounts,
		Data:      data,
	}
}

// ToInstruction materializes the target as a submittable instruction.
func (t *CloningTarget) ToInstruction() solana.Instruction {
	metas := make(solana.AccountMetaSlice, len(t.Accounts))
	for i, acc := range t.Accounts {
		metas[i] = &solana.AccountMeta{
			PublicKey:  acc.Pubkey,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		}
	}
	return solana.NewInstruction(t.ProgramID, metas, t.Data)
}

// Clone returns a deep copy safe for independent mutation.
func (t *CloningTarget) Clone() *CloningTarget {
	accounts := make([]TargetAccount, len(t.Accounts))
	copy(accounts, t.Accounts)
	data := make([]byte, len(t.Data))
	copy(data, t.Data)
	return &CloningTarget{ProgramID: t.ProgramID, Accounts: accounts, Data: data}
}

// EncodeBase64 serializes the target for the cache/process boundary.
func (t *CloningTarget) EncodeBase64() (string, error) {
	raw, err := sonic.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cloning target: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeCloningTarget is the inverse of EncodeBase64.
func DecodeCloningTarget(encoded string) (*CloningTarget, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cloning target: %w", err)
	}
	var t CloningTarget
	if err := sonic.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cloning target: %w", err)
	}
	return &t, nil
}

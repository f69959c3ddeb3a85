package solana

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ProgramInstruction is an instruction with its account indexes resolved to keys.
type ProgramInstruction struct {
	Index    int  // top-level instruction index
	Inner    bool // true for CPI instructions
	Data     []byte
	Accounts []string
}

// AccountKeys returns the full account list used for index resolution:
// static keys followed by loaded writable and loaded readonly addresses.
func (tx *Transaction) AccountKeys() []string {
	if tx == nil || tx.Message == nil {
		return nil
	}
	keys := make([]string, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if tx.Meta != nil && tx.Meta.LoadedAddresses != nil {
		keys = append(keys, tx.Meta.LoadedAddresses.Writable...)
		keys = append(keys, tx.Meta.LoadedAddresses.Readonly...)
	}
	return keys
}

// ProgramInstructions returns all top-level and inner instructions invoking programID,
// in execution order. Instructions with out-of-range account indexes are skipped.
func (tx *Transaction) ProgramInstructions(programID string) []ProgramInstruction {
	if tx == nil || tx.Message == nil {
		return nil
	}
	keys := tx.AccountKeys()

	inner := make(map[int][]CompiledInstruction)
	if tx.Meta != nil {
		for _, ii := range tx.Meta.InnerInstructions {
			inner[ii.Index] = append(inner[ii.Index], ii.Instructions...)
		}
	}

	var out []ProgramInstruction
	for i, ix := range tx.Message.Instructions {
		if pi, ok := resolveInstruction(keys, ix, programID); ok {
			pi.Index = i
			out = append(out, pi)
		}
		for _, cix := range inner[i] {
			if pi, ok := resolveInstruction(keys, cix, programID); ok {
				pi.Index = i
				pi.Inner = true
				out = append(out, pi)
			}
		}
	}
	return out
}

func resolveInstruction(keys []string, ix CompiledInstruction, programID string) (ProgramInstruction, bool) {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) || keys[ix.ProgramIDIndex] != programID {
		return ProgramInstruction{}, false
	}
	accounts := make([]string, len(ix.Accounts))
	for j, idx := range ix.Accounts {
		if idx < 0 || idx >= len(keys) {
			return ProgramInstruction{}, false
		}
		accounts[j] = keys[idx]
	}
	return ProgramInstruction{Data: ix.Data, Accounts: accounts}, true
}

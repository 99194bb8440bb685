// Package ledger computes and verifies the hash chain that makes the
// attendance log tamper-evident. Every record's hash covers the previous
// record's hash, so rewriting history breaks every link after the edit.
//
// Hashing here is pure; reading the true chain tail and persisting the
// new record atomically is the storage layer's job.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
)

// Record is the slice of an attendance record the chain covers.
// Records must be presented in creation order (global insertion order,
// not per-user).
type Record struct {
	UserID       string
	MachineID    string
	Kind         types.RecordKind
	OccurredAtMs int64
	Hash         string
	PrevHash     string
}

// ComputeHash derives the chain hash for one record. The first record of
// the chain uses an empty prevHash. The result is 64 lowercase hex chars.
func ComputeHash(userID, machineID string, kind types.RecordKind, occurredAtMs int64, prevHash string) string {
	var b strings.Builder
	b.WriteString(userID)
	b.WriteByte(':')
	b.WriteString(machineID)
	b.WriteByte(':')
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(occurredAtMs, 10))
	b.WriteByte(':')
	b.WriteString(prevHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Report is the outcome of a chain verification pass.
type Report struct {
	OK      bool
	Checked int
	// FailedAt is the zero-based index of the first record that breaks
	// the chain. Records before it remain trusted; every record from it
	// onward is untrusted by construction. -1 when OK.
	FailedAt int
	Detail   string
}

// VerifyChain recomputes every link of the chain. A mismatch is reported,
// never repaired: tamper detection is a read-time audit signal.
func VerifyChain(records []Record) Report {
	for i, r := range records {
		wantPrev := ""
		if i > 0 {
			wantPrev = records[i-1].Hash
		}
		if r.PrevHash != wantPrev {
			return Report{
				Checked:  i,
				FailedAt: i,
				Detail:   "prev_hash does not match predecessor",
			}
		}
		if ComputeHash(r.UserID, r.MachineID, r.Kind, r.OccurredAtMs, r.PrevHash) != r.Hash {
			return Report{
				Checked:  i,
				FailedAt: i,
				Detail:   "stored hash does not match record fields",
			}
		}
	}
	return Report{OK: true, Checked: len(records), FailedAt: -1}
}

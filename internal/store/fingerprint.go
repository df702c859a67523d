package store

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// batchFingerprint derives a stable idempotency key for a batch write
// request, per spec.md section 4.4's batch write protocol: a client that
// retries an identical batch (same tenant, same ordered operation
// payloads) after a network failure must not have it applied twice. The
// fingerprint is over the tenant and the serialized operation bytes the
// caller supplies; nothing else is added. Two submissions hash identically
// only if their bytes match: internal/service's bytes include the object
// IDs it generates and the audit timestamp attributes, so its object
// writes differ on every submission.
func batchFingerprint(tenant string, operations [][]byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(tenant))
	for _, op := range operations {
		var length [8]byte
		putUint64(length[:], uint64(len(op)))
		h.Write(length[:])
		h.Write(op)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// checkAndRecordFingerprint reports whether this fingerprint has already
// been committed for tenant. If not, it records it atomically as part of
// the caller's transaction so a concurrent duplicate submission fails the
// unique constraint rather than racing past this check.
func checkAndRecordFingerprint(tx execer, tenant, fingerprint string, nowMicros int64) (alreadyCommitted bool, err error) {
	var existing string
	row := tx.QueryRow(`SELECT fingerprint FROM batch_fingerprint WHERE tenant = ? AND fingerprint = ?`, tenant, fingerprint)
	switch err := row.Scan(&existing); err {
	case nil:
		return true, nil
	case errNoRows:
		// fall through to insert
	default:
		return false, fmt.Errorf("checking batch fingerprint: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO batch_fingerprint (tenant, fingerprint, committed_at) VALUES (?, ?, ?)`,
		tenant, fingerprint, nowMicros); err != nil {
		return false, fmt.Errorf("recording batch fingerprint: %w", err)
	}
	return false, nil
}

package deduplication

import (
	"bytes"

	"github.com/lgadye/warn-monitor/types"
)

// HasChanged fingerprints document and compares it with the fingerprint of
// the last processed document. An absent previous fingerprint always counts
// as changed. Nothing is persisted here; the new fingerprint is only stored
// by Store.Commit once the whole cycle succeeded.
func HasChanged(document []byte, previous types.DocumentFingerprint) (bool, types.DocumentFingerprint) {
	fp := types.FingerprintOf(document)
	if len(previous) == 0 {
		return true, fp
	}
	return !bytes.Equal(fp, previous), fp
}

// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factpack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes the canonical SHA-256 hash of a pack body.
//
// Description:
//
//	The hash covers everything except Metadata (which contains the hash
//	itself). Encoding uses encoding/json, which is deterministic for
//	struct fields (declaration order) and map keys (sorted), so equal
//	packs always produce equal fingerprints.
//
// Inputs:
//
//	pack - The pack to fingerprint. Metadata is ignored.
//
// Outputs:
//
//	string - Lowercase hex SHA-256 digest.
//	error - Non-nil only if JSON encoding fails.
func Fingerprint(pack *FactPack) (string, error) {
	body := *pack
	body.Meta = Metadata{}

	data, err := json.Marshal(&body)
	if err != nil {
		return "", fmt.Errorf("encoding pack for hashing: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyFingerprint recomputes the hash and compares it to Meta.Hash.
//
// Returns true when the stored hash matches the current contents. A
// mismatch means the snapshot was mutated after construction, which
// breaks the critic's traceability guarantee.
func VerifyFingerprint(pack *FactPack) (bool, error) {
	want := pack.Meta.Hash
	if want == "" {
		return false, nil
	}
	got, err := Fingerprint(pack)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

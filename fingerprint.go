package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Domain prefix for batch content addressing. The version suffix allows a
// future digest change without colliding with old cache keys.
const batchFingerprintDomain = "triagebot/clustering-batch/v1"

type fingerprintPair struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// BatchFingerprint computes a deterministic digest of the ordered
// (subject, body) pairs in a batch. Reordering the same tickets yields a
// different digest; that is intentional, the key is a function of content
// AND ordering.
func BatchFingerprint(tickets []Ticket) string {
	pairs := make([]fingerprintPair, len(tickets))
	for i, t := range tickets {
		pairs[i] = fingerprintPair{Subject: t.Subject, Body: t.Body}
	}
	// Struct marshaling has a fixed field order, so this is canonical.
	data, _ := json.Marshal(pairs)

	h := sha256.New()
	h.Write([]byte(batchFingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ClusteringCacheKey derives the cache key for a batch digest.
func ClusteringCacheKey(fingerprint string) string {
	return clusteringKeyPrefix + fingerprint
}

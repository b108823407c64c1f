package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed journal identity.
// Version suffix enables future algorithm migration.
const (
	DomainCommand  = "pantry/command/v1"
	DomainDispatch = "pantry/dispatch/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CommandID computes the content-addressed ID of a journaled command.
// The ID is stable across replays given the same run, tick and payload.
func CommandID(runID string, tick int64, kind Kind, payload []byte) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"run_id":  runID,
		"tick":    tick,
		"kind":    string(kind),
		"payload": string(payload),
	})
	if err != nil {
		return "", fmt.Errorf("CommandID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommand, canonical), nil
}

// DispatchID computes the content-addressed ID of a journaled dispatch.
func DispatchID(runID string, tick int64, report []byte) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"run_id": runID,
		"tick":   tick,
		"report": string(report),
	})
	if err != nil {
		return "", fmt.Errorf("DispatchID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDispatch, canonical), nil
}

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm changes.
const (
	DomainRow    = "cogtask/row/v1"
	DomainConfig = "cogtask/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RowID computes the stored identity of one export row.
// The same session, index and row content always hash to the same id,
// which makes repeated writes of a row idempotent.
func RowID(sessionID string, row ExportRow) (string, error) {
	obj := map[string]any{
		"session_id":                sessionID,
		"index":                     row.Index,
		"block_type":                string(row.BlockType),
		"block_csv":                 row.BlockSource,
		"correct":                   row.CorrectKey,
		"is_correct":                string(row.Label),
		"response":                  row.Response,
		"flanker_type":              row.FlankerType,
		"flanker_correct_direction": row.FlankerDirection,
		"stroop_text":               row.StroopText,
		"stroop_color":              row.StroopColor,
		"response_time_ns":          int64(row.ResponseTime),
		"participant_id":            row.ParticipantID,
		"participant_type":          string(row.ParticipantType),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RowID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRow, canonical), nil
}

// ConfigHash fingerprints an experiment definition so stored sessions can be
// matched to the configuration that produced them. The seed is excluded:
// two runs of one definition share a hash.
func ConfigHash(cfg ExperimentConfig) (string, error) {
	obj := map[string]any{
		"title":        cfg.Title,
		"stroop_first": cfg.StroopFirst,
		"settle_ns":    int64(cfg.Settle),
		"shuffle":      cfg.Shuffle,
		"flanker": map[string]any{
			"files":       cfg.Flanker.Files,
			"instruction": cfg.Flanker.Instruction,
		},
		"stroop": map[string]any{
			"files":       cfg.Stroop.Files,
			"instruction": cfg.Stroop.Instruction,
		},
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// MustRowID is like RowID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRowID(sessionID string, row ExportRow) string {
	id, err := RowID(sessionID, row)
	if err != nil {
		panic(err)
	}
	return id
}

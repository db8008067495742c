package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Domain prefixes for content hashes. The version suffix allows a later
// algorithm change without colliding with stored fingerprints.
const (
	DomainConfig = "tmerge/config/v1"
	DomainPlan   = "tmerge/plan/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigFingerprint identifies a configuration by content. Two configs with
// the same fingerprint compile to the same planning pipeline.
func ConfigFingerprint(cfg *Config) (string, error) {
	nks := make(Array, len(cfg.NaturalKeys))
	for i, key := range cfg.NaturalKeys {
		cols := make(Array, len(key))
		for j, c := range key {
			cols[j] = String(c)
		}
		nks[i] = cols
	}
	obj := Object{
		"mode":              String(cfg.Mode),
		"delete_mode":       String(cfg.EffectiveDeleteMode()),
		"identity_strategy": String(cfg.EffectiveStrategy()),
		"era": Object{
			"name":        String(cfg.Era.Name),
			"domain":      String(cfg.Era.Domain),
			"valid_from":  String(cfg.Era.ValidFrom),
			"valid_until": String(cfg.Era.ValidUntil),
			"valid_to":    String(cfg.Era.ValidTo),
		},
		"identity_columns":  stringArray(cfg.IdentityColumns),
		"natural_keys":      nks,
		"ephemeral_columns": stringArray(cfg.EphemeralColumns),
		"founding_mode":     Bool(cfg.FoundingMode),
		"backfill_keys":     Bool(cfg.BackfillKeys),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ConfigFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// PlanHash identifies a plan's actions by content, independent of its ID.
func PlanHash(actions []PlannedAction) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainPlan))
	h.Write([]byte{0x00})
	for i, a := range actions {
		data, err := MarshalCanonical(Object{
			"kind":          String(a.Kind),
			"effect":        String(a.Effect),
			"partition_key": String(a.PartitionKey),
			"old":           periodValue(a.Old),
			"new":           periodValue(a.New),
			"data":          Object(a.Data),
		})
		if err != nil {
			return "", fmt.Errorf("PlanHash: action %d: %w", i, err)
		}
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DataHash is a fast non-cryptographic hash of a payload, ignoring explicit
// nulls. Equal payloads under EqualIgnoringNulls hash equally.
func DataHash(p Payload) uint64 {
	canonical, err := MarshalCanonical(p.StripNulls())
	if err != nil {
		return 0
	}
	return xxhash.Sum64(canonical)
}

func stringArray(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

func periodValue(p *Period) Value {
	if p == nil {
		return Null{}
	}
	return Array{Int(p.From), Int(p.Until)}
}

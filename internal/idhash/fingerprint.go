// Package idhash computes deterministic SHA256 fingerprints of kernel inputs.
// The coordinator compares fingerprints to skip recomputation when an input is
// replaced by an equal one.
package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"trade-edge-lab/internal/domain"
)

// PolicyFingerprint hashes an adjustment policy.
// Formula: SHA256(stop|efficiency|capital|flat_stake|fractional_kelly)
// Returns hex-encoded hash (64 characters).
func PolicyFingerprint(p domain.AdjustmentPolicy) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		formatFloat(p.StopLossPct),
		formatFloat(p.EfficiencyPct),
		formatFloat(p.StartCapital),
		formatFloat(p.FlatStake),
		formatFloat(p.FractionalKellyPct),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// FiltersFingerprint hashes a predicate list. Order matters, as it does for
// filter indices in step sweeps.
// Formula: SHA256(column:min:max;...) with "*" for an open bound.
func FiltersFingerprint(preds []domain.Predicate) string {
	var sb strings.Builder
	for _, p := range preds {
		sb.WriteString(p.Column)
		sb.WriteByte(':')
		sb.WriteString(formatBound(p.Min))
		sb.WriteByte(':')
		sb.WriteString(formatBound(p.Max))
		sb.WriteByte(';')
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// TableFingerprint hashes every row, numeric column, label column and the ordering
// key of a table. Columns are visited in sorted name order.
func TableFingerprint(t *domain.Table) string {
	h := sha256.New()
	var buf [8]byte

	n := t.Len()
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])

	for i := 0; i < n; i++ {
		h.Write([]byte(t.TradeID(i)))
		h.Write([]byte{0})
	}
	for _, name := range t.NumericColumns() {
		h.Write([]byte("n:" + name))
		col, _ := t.Column(name)
		for _, v := range col {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	for _, name := range t.LabelColumns() {
		h.Write([]byte("l:" + name))
		col, _ := t.Label(name)
		for _, v := range col {
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
	}
	if keys, ok := t.OrderKeys(); ok {
		h.Write([]byte("k:"))
		for _, k := range keys {
			binary.LittleEndian.PutUint64(buf[:], uint64(k))
			h.Write(buf[:])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// BundleFingerprint combines the three input fingerprints.
// Formula: SHA256(table|filters|policy)
func BundleFingerprint(table, filters, policy string) string {
	data := fmt.Sprintf("%s|%s|%s", table, filters, policy)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func formatBound(v *float64) string {
	if v == nil {
		return "*"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

func indexName(prefix string) string    { return prefix + "records:idx" }
func recordPrefix(prefix string) string { return prefix + "rec:" }

// recordKey is deterministic per (tenant, file name), so a re-upload lands on
// the same hash. Hashing the name keeps arbitrary file names out of the key.
func recordKey(prefix, tenantID, fileName string) string {
	sum := sha256.Sum256([]byte(fileName))
	return recordPrefix(prefix) + tenantID + ":" + hex.EncodeToString(sum[:])
}

// buildHashFields converts a record into the flat map written by HSET.
func buildHashFields(id string, rec *domrec.Record) map[string]string {
	return map[string]string{
		fieldID:          id,
		fieldTenantID:    rec.TenantID(),
		fieldFileName:    rec.FileName(),
		fieldFileNameLC:  strings.ToLower(rec.FileName()),
		fieldStoragePath: rec.StoragePath(),
		fieldContent:     rec.Content(),
		fieldMediaType:   rec.MediaType(),
		fieldByteSize:    strconv.FormatInt(rec.ByteSize(), 10),
		fieldCreatedAt:   strconv.FormatInt(rec.CreatedAt().UnixMilli(), 10),
		fieldVector:      vectorToBytes(rec.Vector()),
	}
}

// parseHashFields converts a stored hash back into a record.
func parseHashFields(m map[string]string) domrec.Record {
	d := parseDisplay(m)
	return domrec.Reconstruct(
		m[fieldID], d.TenantID, d.FileName, d.StoragePath, d.Content, d.MediaType,
		d.ByteSize, bytesToVector(m[fieldVector]), d.CreatedAt,
	)
}

// parseDisplay maps search fields onto the candidate display copy.
func parseDisplay(m map[string]string) result.Record {
	size, _ := strconv.ParseInt(m[fieldByteSize], 10, 64)
	var created time.Time
	if ms, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		created = time.UnixMilli(ms).UTC()
	}
	return result.Record{
		TenantID:    m[fieldTenantID],
		FileName:    m[fieldFileName],
		StoragePath: m[fieldStoragePath],
		Content:     m[fieldContent],
		MediaType:   m[fieldMediaType],
		ByteSize:    size,
		CreatedAt:   created,
	}
}

// matchesAny reports whether file name or content contains any term, ignoring case.
func matchesAny(rec result.Record, terms []string) bool {
	name := strings.ToLower(rec.FileName)
	content := strings.ToLower(rec.Content)
	for _, t := range terms {
		t = strings.ToLower(t)
		if strings.Contains(name, t) || strings.Contains(content, t) {
			return true
		}
	}
	return false
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

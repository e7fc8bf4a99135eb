package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmrzaf/cqlstress/internal/domain"
)

// HashProfile hashes the parts of an effective profile that decide which rows
// exist. Descriptive fields (id, name, description) and consistency levels are
// left out so a renamed copy of a profile still matches.
func HashProfile(p *domain.Profile) (string, error) {
	data, err := json.Marshal(canonicalizeProfile(p))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalizeProfile(p *domain.Profile) map[string]interface{} {
	return map[string]interface{}{
		"keyspace":    p.Keyspace,
		"table":       p.Table,
		"population":  p.Population,
		"key_size":    p.KeySize,
		"columns":     p.Columns,
		"column_size": p.ColumnSize,
	}
}

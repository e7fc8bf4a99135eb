package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmrzaf/cqlstress/internal/domain"
)

type runConfigHashPayload struct {
	ProfileHash       string `json:"profile_hash"`
	Command           string `json:"command"`
	TargetKind        string `json:"target_kind"`
	TargetName        string `json:"target_name"`
	Consistency       string `json:"consistency"`
	SerialConsistency string `json:"serial_consistency"`
	Operations        uint64 `json:"operations,omitempty"`
}

// HashRunConfig identifies a run configuration. A read and the write it
// checks share a profile hash but differ here by command.
func HashRunConfig(profile *domain.Profile, target *domain.TargetConfig, cmd domain.Command, operations *uint64) (string, error) {
	ph, err := HashProfile(profile)
	if err != nil {
		return "", err
	}

	p := runConfigHashPayload{
		ProfileHash:       ph,
		Command:           string(cmd),
		TargetKind:        target.Kind,
		TargetName:        target.Name,
		Consistency:       profile.Consistency,
		SerialConsistency: profile.SerialConsistency,
	}
	if operations != nil {
		p.Operations = *operations
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

package promotion

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// VariantScope selects the variants of one product a campaign applies to.
// It is either ALL (every current and future variant) or a finite set of IDs.
// The zero value is the empty finite set.
type VariantScope struct {
	all bool
	ids []uuid.UUID
}

// ScopeAll returns the scope covering every variant.
func ScopeAll() VariantScope {
	return VariantScope{all: true}
}

// ScopeOf returns a finite scope of the given IDs with duplicates removed.
func ScopeOf(ids ...uuid.UUID) VariantScope {
	return VariantScope{ids: dedupe(ids)}
}

// ScopeFromRequest interprets a client-supplied list: empty means the whole product.
func ScopeFromRequest(ids []uuid.UUID) VariantScope {
	if len(ids) == 0 {
		return ScopeAll()
	}
	return ScopeOf(ids...)
}

func (s VariantScope) IsAll() bool { return s.all }

// IsEmpty reports whether the scope is a finite set with no members.
func (s VariantScope) IsEmpty() bool {
	return !s.all && len(s.ids) == 0
}

// IDs returns a copy of the finite members; nil for ALL.
func (s VariantScope) IDs() []uuid.UUID {
	if s.all {
		return nil
	}
	return slices.Clone(s.ids)
}

// Includes reports whether the scope covers variantID.
func (s VariantScope) Includes(variantID uuid.UUID) bool {
	return s.all || slices.Contains(s.ids, variantID)
}

// Union merges two scopes. ALL absorbs any set.
func (s VariantScope) Union(o VariantScope) VariantScope {
	if s.all || o.all {
		return ScopeAll()
	}
	merged := make([]uuid.UUID, 0, len(s.ids)+len(o.ids))
	merged = append(merged, s.ids...)
	merged = append(merged, o.ids...)
	return ScopeOf(merged...)
}

// Subtract removes ids from the scope. ALL is first materialized to universe,
// the product's current variant IDs.
func (s VariantScope) Subtract(ids []uuid.UUID, universe []uuid.UUID) VariantScope {
	base := s.ids
	if s.all {
		base = universe
	}
	kept := make([]uuid.UUID, 0, len(base))
	for _, id := range base {
		if !slices.Contains(ids, id) {
			kept = append(kept, id)
		}
	}
	return ScopeOf(kept...)
}

// Equal compares scopes as sets.
func (s VariantScope) Equal(o VariantScope) bool {
	if s.all || o.all {
		return s.all == o.all
	}
	if len(s.ids) != len(o.ids) {
		return false
	}
	for _, id := range s.ids {
		if !slices.Contains(o.ids, id) {
			return false
		}
	}
	return true
}

func (s VariantScope) String() string {
	if s.all {
		return "ALL"
	}
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MarshalJSON renders ALL as null and a finite scope as an array.
func (s VariantScope) MarshalJSON() ([]byte, error) {
	if s.all {
		return []byte("null"), nil
	}
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *VariantScope) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ScopeAll()
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = ScopeOf(ids...)
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

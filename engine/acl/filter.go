// Package acl applies the access-control grammar that guards vector
// search.
package acl

import (
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
)

// ApplyFilter runs each payload against userACLs in order and keeps it
// if the first matching ACL admits it; payloads with no matching ACL are
// dropped. Result is deduplicated by chunk_id, preserving first
// occurrence — ported verbatim from apply_acl_filter_to_payloads.
func ApplyFilter(payloads []domain.VectorPayload, userACLs []domain.ACL, productID string) []domain.VectorPayload {
	seen := map[string]bool{}
	var out []domain.VectorPayload

	for _, p := range payloads {
		if !admitted(p, userACLs) {
			continue
		}
		if seen[p.ChunkID] {
			continue
		}
		seen[p.ChunkID] = true
		out = append(out, p)
	}
	return out
}

func admitted(p domain.VectorPayload, userACLs []domain.ACL) bool {
	for _, a := range userACLs {
		switch a.AccessType {
		case domain.ACLFull:
			return true
		case domain.ACLIndex:
			if scopeContains(a.IndexScope, p.ProductID) {
				return true
			}
		case domain.ACLDocument:
			if scopeContains(a.DocScope, p.DocumentID) {
				return true
			}
		case domain.ACLField:
			if fieldOverlap(p.FieldName, a.FieldScope) {
				return true
			}
		}
	}
	return false
}

// scopeContains reports whether target appears in a comma-separated
// scope list.
func scopeContains(scope, target string) bool {
	if scope == "" || target == "" {
		return false
	}
	for _, id := range strings.Split(scope, ",") {
		if strings.TrimSpace(id) == target {
			return true
		}
	}
	return false
}

// fieldOverlap reports whether fieldName and any entry of the
// comma-separated fieldScope list have a case-insensitive substring
// overlap in either direction.
func fieldOverlap(fieldName, fieldScope string) bool {
	if fieldName == "" || fieldScope == "" {
		return false
	}
	lname := strings.ToLower(fieldName)
	for _, f := range strings.Split(fieldScope, ",") {
		lf := strings.ToLower(strings.TrimSpace(f))
		if lf == "" {
			continue
		}
		if strings.Contains(lname, lf) || strings.Contains(lf, lname) {
			return true
		}
	}
	return false
}

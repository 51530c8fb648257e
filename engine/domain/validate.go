package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidateProcessedChunkRecord enforces the record invariants every
// stage assumes: non-empty text, positive token estimate, a present
// chunk id.
func ValidateProcessedChunkRecord(r ProcessedChunkRecord) error {
	if utf8.RuneCountInString(strings.TrimSpace(r.Text)) == 0 {
		return NewValidationError("text", r.Text, ErrEmptyText)
	}
	if r.ChunkID == "" {
		return NewValidationError("chunk_id", r.ChunkID, ErrInvalidChunkID)
	}
	if r.TokenEst <= 0 {
		return NewValidationError("token_est", strconv.Itoa(r.TokenEst), ErrTokenEstNonPositive)
	}
	return nil
}

// ValidateACL rejects an ACL whose declared scope is empty for its
// access type — an ACL that can never admit anything is a configuration
// mistake, not a legitimate "deny all"; denying everything is what the
// absence of ACLs already does.
func ValidateACL(a ACL) error {
	switch a.AccessType {
	case ACLFull:
		return nil
	case ACLIndex:
		if a.IndexScope == "" {
			return NewValidationError("index_scope", a.IndexScope, ErrInvalidACLScope)
		}
	case ACLDocument:
		if a.DocScope == "" {
			return NewValidationError("doc_scope", a.DocScope, ErrInvalidACLScope)
		}
	case ACLField:
		if a.FieldScope == "" {
			return NewValidationError("field_scope", a.FieldScope, ErrInvalidACLScope)
		}
	default:
		return NewValidationError("access_type", string(a.AccessType), ErrInvalidACLScope)
	}
	return nil
}

// ValidateFingerprint rejects scores outside the [0,100] range.
func ValidateFingerprint(f Fingerprint) error {
	for _, v := range []float64{
		f.AITrustScore, f.Completeness, f.Quality, f.Secure,
		f.MetadataPresence, f.KBReady,
	} {
		if v < 0 || v > 100 {
			return NewValidationError("fingerprint", strconv.FormatFloat(v, 'f', -1, 64), ErrEmptyFingerprint)
		}
	}
	return nil
}

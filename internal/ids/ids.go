// Package ids normalizes identifiers that arrive either as plain strings or as
// MongoDB ObjectIDs into one comparable string form.
package ids

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Normalize returns the canonical form of an identifier. ObjectIDs become their
// lowercase hex form, strings holding an ObjectID are lowercased, and the
// extended-JSON shape {"$oid": "..."} is unwrapped. Unknown or empty values
// report ok=false.
func Normalize(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return normalizeString(id)
	case *string:
		if id == nil {
			return "", false
		}
		return normalizeString(*id)
	case primitive.ObjectID:
		if id.IsZero() {
			return "", false
		}
		return id.Hex(), true
	case *primitive.ObjectID:
		if id == nil || id.IsZero() {
			return "", false
		}
		return id.Hex(), true
	case map[string]any:
		if oid, ok := id["$oid"]; ok {
			return Normalize(oid)
		}
		return "", false
	case primitive.M:
		return Normalize(map[string]any(id))
	case fmt.Stringer:
		return normalizeString(id.String())
	default:
		return "", false
	}
}

func normalizeString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if primitive.IsValidObjectID(s) {
		return strings.ToLower(s), true
	}
	return s, true
}

// MustNormalize is Normalize for values already known to be identifiers; it
// returns "" when the value is not one.
func MustNormalize(v any) string {
	s, _ := Normalize(v)
	return s
}

// Equal reports whether two identifiers refer to the same entity regardless of
// the form each was supplied in.
func Equal(a, b any) bool {
	x, ok := Normalize(a)
	if !ok {
		return false
	}
	y, ok := Normalize(b)
	return ok && x == y
}

// NormalizeAll converts a list of raw identifiers, dropping anything that is
// not an identifier and collapsing duplicates while keeping first-seen order.
func NormalizeAll(vs []any) []string {
	out := make([]string, 0, len(vs))
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		id, ok := Normalize(v)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id (in any supported form) is a member of list.
func Contains(list []string, id any) bool {
	want, ok := Normalize(id)
	if !ok {
		return false
	}
	for _, s := range list {
		if got, ok := Normalize(s); ok && got == want {
			return true
		}
	}
	return false
}

// New returns a fresh identifier in canonical form.
func New() string {
	return primitive.NewObjectID().Hex()
}

// ObjectID converts a canonical identifier back to an ObjectID when it has that
// shape. Identifiers minted elsewhere stay strings.
func ObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

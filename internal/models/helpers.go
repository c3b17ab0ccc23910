package models

import (
	"fmt"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// RecordIDFull returns the "table:id" form of a RecordID. This is the
// representation used for memory-unit ids inside context packs, so the ids
// the answer generator cites can be matched back to retrieved units.
func RecordIDFull(id surrealmodels.RecordID) string {
	return fmt.Sprintf("%s:%v", id.Table, id.ID)
}

// BareRecordID strips a leading "table:" prefix from an id, so lookups accept
// both the full form the API hands out and the bare record id.
func BareRecordID(table, id string) string {
	return strings.TrimPrefix(id, table+":")
}

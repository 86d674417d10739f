package internal

import (
	"challenge-chat/repositories"

	"github.com/mama165/sdk-go/database"
)

// InspectMapper renders chat records in the Badger debug inspector.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	record, err := repositories.Describe(key, val)
	row.Type = record.Kind
	if err != nil {
		row.Detail = "Error: " + err.Error()
		return row
	}
	if record.Detail != "" {
		row.Detail = record.Detail
	}
	return row
}

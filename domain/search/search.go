package search

import (
	"challenge-chat/domain"
	"strings"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Query represents the structured parameters for a room history search.
// It decouples the raw user input from the actual search engine requirements.
type Query struct {
	RawInput string        // The original input from the user
	Terms    string        // The actual text to search in the index
	Author   domain.UserID // Optional author filter
	Room     domain.RoomID // Target room for the search
	Limit    int           // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: "plastic bottles --author u-42"
func NewSearchQuery(room domain.RoomID, input string, limit int) Query {
	query := Query{
		RawInput: input,
		Room:     room,
		Limit:    clampLimit(limit),
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]
		if part == "--author" && i+1 < len(parts) {
			query.Author = domain.UserID(parts[i+1])
			i++
			continue
		}
		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Hit is one matching message, ranked by relevance.
type Hit struct {
	MessageID  string
	Room       domain.RoomID
	AuthorID   domain.UserID
	AuthorName string
	Body       string
	At         time.Time
	Score      float64
}

package index

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"challenge-chat/domain/search"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
)

const (
	fieldRoom       = "room"
	fieldAuthor     = "author"
	fieldAuthorName = "author_name"
	fieldBody       = "body"
	fieldAt         = "at"
	fieldID         = "_id"
)

var _ contract.IMessageIndex = (*MessageIndex)(nil)

// MessageIndex is a Bluge full text index of message bodies, one document per message.
// Rooms and authors are keyword fields so they can only be filtered exactly.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces the document of a message.
func (i *MessageIndex) Index(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldRoom, message.Room.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldAuthor, message.AuthorID.String()).StoreValue()).
		AddField(bluge.NewStoredOnlyField(fieldAuthorName, []byte(message.AuthorName))).
		AddField(bluge.NewTextField(fieldBody, message.Body).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldAt, message.At).StoreValue())
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", message.ID, err)
	}
	return nil
}

// Search returns the best matching messages of the query's room, most relevant first.
func (i *MessageIndex) Search(ctx context.Context, query search.Query) ([]search.Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Unable to close index reader", "error", err)
		}
	}()

	boolean := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(query.Room.String()).SetField(fieldRoom))
	if query.Terms != "" {
		boolean.AddMust(bluge.NewMatchQuery(query.Terms).SetField(fieldBody))
	}
	if query.Author != "" {
		boolean.AddMust(bluge.NewTermQuery(query.Author.String()).SetField(fieldAuthor))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolean))
	if err != nil {
		return nil, fmt.Errorf("search room %s: %w", query.Room, err)
	}

	var hits []search.Hit
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := search.Hit{Score: match.Score}
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.MessageID = string(value)
			case fieldRoom:
				hit.Room = domain.RoomID(value)
			case fieldAuthor:
				hit.AuthorID = domain.UserID(value)
			case fieldAuthorName:
				hit.AuthorName = string(value)
			case fieldBody:
				hit.Body = string(value)
			case fieldAt:
				var at time.Time
				at, visitErr = bluge.DecodeDateTime(value)
				hit.At = at.UTC()
			}
			return visitErr == nil
		})
		if err == nil {
			err = visitErr
		}
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("read search results: %w", err)
	}
	return hits, nil
}

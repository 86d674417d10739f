package runtime

import (
	"challenge-chat/domain"
	"challenge-chat/domain/event"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// Every connection of a room must observe the same order, whatever the senders' interleaving.
func TestPipeline_Load_Identical_Order_For_All_Members(t *testing.T) {
	if testing.Short() {
		t.Skip("load test")
	}
	req := require.New(t)
	const numClients, messagesPerClient = 20, 50

	f := newFixture(t, numClients*messagesPerClient+numClients)
	var clock atomic.Int64
	base := time.Now()
	f.messages.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d domain.Draft) (domain.Message, error) {
			at := base.Add(time.Duration(clock.Add(1)))
			return domain.Message{ID: uuid.New(), Room: d.Room, AuthorID: d.AuthorID,
				AuthorName: d.AuthorName, Body: d.Body, At: at}, nil
		}).AnyTimes()

	sessions := make([]*Session, numClients)
	for i := range sessions {
		sessions[i] = f.joined(t, domain.Identity{ID: domain.UserID(fmt.Sprintf("user-%d", i))}, "c1")
	}

	start := time.Now()
	var wg sync.WaitGroup
	var failures atomic.Int64
	for i, session := range sessions {
		wg.Add(1)
		go func(i int, session *Session) {
			defer wg.Done()
			for j := 0; j < messagesPerClient; j++ {
				cmd := domain.SendMessageCommand{Room: "c1", Body: fmt.Sprintf("load %d-%d", i, j), CorrelationID: uuid.NewString()}
				if err := session.Handle(context.Background(), cmd); err != nil {
					failures.Add(1)
				}
			}
		}(i, session)
	}
	wg.Wait()
	t.Logf("%d messages in %v", numClients*messagesPerClient, time.Since(start))

	req.Zero(failures.Load())
	var reference []string
	for _, session := range sessions {
		order := lo.FilterMap(drain(session), func(e event.DomainEvent, _ int) (string, bool) {
			delivered, ok := e.(event.MessageDelivered)
			return delivered.Message.ID.String(), ok
		})
		req.Len(order, numClients*messagesPerClient)
		if reference == nil {
			reference = order
			continue
		}
		req.Equal(reference, order)
	}
}

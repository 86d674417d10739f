package domain

// Command is an inbound intent received on an authenticated connection.
type Command interface {
	RoomID() RoomID
}

type JoinRoomCommand struct {
	Room RoomID
}

func (c JoinRoomCommand) RoomID() RoomID {
	return c.Room
}

type LeaveRoomCommand struct {
	Room RoomID
}

func (c LeaveRoomCommand) RoomID() RoomID {
	return c.Room
}

// SendMessageCommand carries a client generated CorrelationID so the sender
// can match the broadcast echo with its optimistic local entry.
type SendMessageCommand struct {
	Room          RoomID `validate:"required,max=64"`
	Body          string `validate:"required"`
	CorrelationID string `validate:"max=128"`
}

func (c SendMessageCommand) RoomID() RoomID {
	return c.Room
}

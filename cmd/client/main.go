// Command client is a terminal chat client. Every stdin line is sent to the
// configured room; lines starting with a slash are commands:
//
//	/rooms          list joined rooms with their unread count
//	/read           mark the room as read
//	/search <text>  search the room
//	/retry <id>     resend a failed message
//	/quit
package main

import (
	"bufio"
	"challenge-chat/api/chat"
	"challenge-chat/client"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	LogLevel     string `env:"LOG_LEVEL,default=WARN"`
	ServerAddr   string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Token        string `env:"CHAT_TOKEN,required=true"`
	RoomID       string `env:"CHAT_ROOM_ID,required=true"`
	HistoryLimit int    `env:"CHAT_HISTORY_LIMIT,default=50"`
	EventBuffer  int    `env:"CHAT_EVENT_BUFFER,default=64"`
}

var (
	mine    = color.New(color.FgGreen)
	others  = color.New(color.FgCyan)
	pending = color.New(color.FgGray)
	failed  = color.New(color.FgRed)
	notice  = color.New(color.FgYellow)
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat client terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc, err := grpc.NewClient(config.ServerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to create client for %s: %w", config.ServerAddr, err)
	}
	defer cc.Close()

	conn, err := client.Dial(ctx, cc, config.Token, config.EventBuffer, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer conn.Close()

	view, err := conn.OpenRoom(ctx, config.RoomID, config.HistoryLimit)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = view.Close() }()

	notice.Printf("joined %s, type /quit to leave\n", config.RoomID)
	shown := render(view.Entries(), map[string]client.State{})

	lines := make(chan string)
	go scan(lines)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-conn.Done():
			return exitRuntime, fmt.Errorf("connection closed: %w", conn.Err())
		case e := <-conn.Events():
			printEvent(e, config.RoomID)
			shown = render(view.Entries(), shown)
		case <-ticker.C:
			view.Expire()
			shown = render(view.Entries(), shown)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			quit, err := handle(ctx, conn, view, line)
			if err != nil {
				failed.Println(err)
			}
			if quit {
				return exitOK, nil
			}
			shown = render(view.Entries(), shown)
		}
	}
}

func scan(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines <- line
		}
	}
}

func handle(ctx context.Context, conn *client.Conn, view *client.RoomView, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		_, err := view.Send(line)
		return false, err
	}
	command, arg, _ := strings.Cut(line[1:], " ")
	switch command {
	case "quit":
		return true, nil
	case "read":
		return false, view.MarkRead(ctx)
	case "rooms":
		rooms, err := conn.ListRooms(ctx)
		if err != nil {
			return false, err
		}
		for _, room := range rooms.Rooms {
			notice.Printf("  %s\t%d unread\n", room.RoomID, room.Unread)
		}
		notice.Printf("  total\t%d unread\n", rooms.TotalUnread)
	case "search":
		hits, err := conn.Search(ctx, view.Room(), arg, 10)
		if err != nil {
			return false, err
		}
		for _, hit := range hits {
			notice.Printf("  [%.2f] %s: %s\n", hit.Score, hit.AuthorName, hit.Body)
		}
	case "retry":
		_, err := view.Resend(arg)
		return false, err
	default:
		return false, fmt.Errorf("unknown command /%s", command)
	}
	return false, nil
}

func printEvent(e chat.ServerEvent, room string) {
	switch e.Type {
	case chat.TypeMemberJoined:
		if e.Member != nil {
			notice.Printf("* %s joined %s\n", e.Member.DisplayName, e.RoomID)
		}
	case chat.TypeMemberLeft:
		if e.Member != nil {
			notice.Printf("* %s left %s\n", e.Member.DisplayName, e.RoomID)
		}
	case chat.TypeCommandRejected:
		failed.Printf("! %s rejected: %s\n", e.Command, e.Reason)
	case chat.TypeMessageDelivered:
		if e.RoomID != room && e.Message != nil {
			notice.Printf("* new message in %s from %s\n", e.RoomID, e.Message.AuthorName)
		}
	}
}

func stateOf(entries []client.Entry) map[string]client.State {
	states := make(map[string]client.State, len(entries))
	for _, entry := range entries {
		states[key(entry)] = entry.State
	}
	return states
}

// render prints the entries that are new or whose state changed since the last call.
func render(entries []client.Entry, shown map[string]client.State) map[string]client.State {
	for _, entry := range entries {
		if previous, ok := shown[key(entry)]; ok && previous == entry.State {
			continue
		}
		switch {
		case entry.State == client.Pending:
			pending.Printf("  … %s\n", entry.Body)
		case entry.State == client.Failed:
			failed.Printf("  ✗ %s (%s) /retry %s\n", entry.Body, entry.Reason, entry.CorrelationID)
		case entry.CorrelationID != "":
			mine.Printf("%s me: %s\n", entry.Message.Timestamp.Local().Format(time.Kitchen), entry.Message.Body)
		default:
			others.Printf("%s %s: %s\n", entry.Message.Timestamp.Local().Format(time.Kitchen), entry.Message.AuthorName, entry.Message.Body)
		}
	}
	return stateOf(entries)
}

func key(entry client.Entry) string {
	if entry.Message != nil {
		return entry.Message.ID
	}
	return entry.CorrelationID
}

package main

import (
	"challenge-chat/auth"
	"challenge-chat/domain"
	"challenge-chat/repositories"
	"challenge-chat/services"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type command func(config Config, args []string, out io.Writer) error

var commands = map[string]command{
	"enroll":   enroll,
	"withdraw": withdraw,
	"token":    token,
	"revoke":   revoke,
	"rooms":    rooms,
	"dump":     dump,
}

var errMissingFlag = errors.New("missing required flag")

func enroll(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("enroll", flag.ContinueOnError)
	room := fs.String("room", "", "challenge room id")
	user := fs.String("user", "", "user id")
	name := fs.String("name", "", "display name, defaults to the user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		*name = *user
	}
	identity := domain.Identity{ID: domain.UserID(*user), DisplayName: *name}
	if !domain.RoomID(*room).Valid() || !identity.ID.Valid() {
		return fmt.Errorf("%w: -room and -user", errMissingFlag)
	}

	db, err := openDB(config.BadgerFilepath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	participant, err := repositories.NewRosterRepository(db).Enroll(context.Background(), domain.RoomID(*room), identity)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s enrolled in %s since %s\n", participant.UserID, participant.Room, participant.JoinedAt.Format(time.RFC3339))
	return err
}

func withdraw(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	room := fs.String("room", "", "challenge room id")
	user := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !domain.RoomID(*room).Valid() || !domain.UserID(*user).Valid() {
		return fmt.Errorf("%w: -room and -user", errMissingFlag)
	}

	db, err := openDB(config.BadgerFilepath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewRosterRepository(db).Withdraw(context.Background(), domain.RoomID(*room), domain.UserID(*user)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s withdrawn from %s\n", *user, *room)
	return err
}

func token(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "user id")
	name := fs.String("name", "", "display name, defaults to the user id")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !domain.UserID(*user).Valid() {
		return fmt.Errorf("%w: -user", errMissingFlag)
	}
	if config.JwtSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if *name == "" {
		*name = *user
	}

	db, err := openDB(config.BadgerFilepath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := repositories.NewCredentialRepository(db).Current(context.Background(), domain.UserID(*user))
	if err != nil {
		return err
	}
	signed, err := auth.NewIssuer([]byte(config.JwtSecret), config.TokenIssuer).
		Issue(domain.Identity{ID: domain.UserID(*user), DisplayName: *name}, version, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, signed)
	return err
}

func revoke(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	user := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !domain.UserID(*user).Valid() {
		return fmt.Errorf("%w: -user", errMissingFlag)
	}

	db, err := openDB(config.BadgerFilepath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := repositories.NewCredentialRepository(db).Bump(context.Background(), domain.UserID(*user))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "credentials of %s now at version %d\n", *user, version)
	return err
}

func rooms(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rooms", flag.ContinueOnError)
	user := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !domain.UserID(*user).Valid() {
		return fmt.Errorf("%w: -user", errMissingFlag)
	}

	db, err := openDB(config.BadgerFilepath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	log := slog.New(slog.DiscardHandler)
	readState := services.NewReadStateService(repositories.NewMessageRepository(db, log),
		repositories.NewReadMarkerRepository(db), repositories.NewRosterRepository(db))
	summaries, err := readState.ListRooms(context.Background(), domain.UserID(*user))
	if err != nil {
		return err
	}

	table := newTable(out, "Room", "Unread")
	total := 0
	for _, summary := range summaries {
		total += summary.Unread
		table.Append([]string{summary.Room.String(), strconv.Itoa(summary.Unread)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total)})
	table.Render()
	return nil
}

func dump(config Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	prefix := fs.String("prefix", "msg:", "key prefix to scan")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(config.BadgerFilepath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	table := newTable(out, "Key", "Type", "Detail")
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				record, err := repositories.Describe(key, v)
				if err != nil {
					// A corrupted record should not stop the scan
					table.Append([]string{key, record.Kind, "Error: " + err.Error()})
					return nil
				}
				table.Append([]string{key, record.Kind, record.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// openDB opens the store. Read-only opens bypass the directory lock so
// inspection commands can run next to the chat server.
func openDB(path string, readOnly bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if readOnly {
		opts = opts.WithReadOnly(true).WithBypassLockGuard(true)
	}
	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		return nil, fmt.Errorf("store needs recovery, open it once with the chat server: %w", err)
	}
	return db, err
}

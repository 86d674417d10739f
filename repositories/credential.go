package repositories

import (
	"challenge-chat/contract"
	"challenge-chat/domain"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.ICredentialRepository = (*CredentialRepository)(nil)

// CredentialRepository stores the credential version of each user under "credver:{user_id}".
// A token minted with an older version is refused at connect time.
type CredentialRepository struct {
	db *badger.DB
}

func NewCredentialRepository(db *badger.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Current returns the version, 0 for a user whose credentials were never rotated.
func (c *CredentialRepository) Current(ctx context.Context, user domain.UserID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var version uint64
	err := c.db.View(func(txn *badger.Txn) error {
		v, err := readVersion(txn, user)
		version = v
		return err
	})
	return version, err
}

// Bump invalidates every token issued so far for the user and returns the new version.
func (c *CredentialRepository) Bump(ctx context.Context, user domain.UserID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var version uint64
	err := c.db.Update(func(txn *badger.Txn) error {
		current, err := readVersion(txn, user)
		if err != nil {
			return err
		}
		version = current + 1
		return txn.Set(credentialKey(user), encodeUint(version))
	})
	return version, err
}

func readVersion(txn *badger.Txn, user domain.UserID) (uint64, error) {
	item, err := txn.Get(credentialKey(user))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version uint64
	err = item.Value(func(value []byte) error {
		v, err := decodeUint(value)
		if err != nil {
			return fmt.Errorf("decode credential version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

func credentialKey(user domain.UserID) []byte {
	return []byte(fmt.Sprintf("credver:%s", user))
}

// Package sessionstore persists the client session in the local metadata
// table. With a passphrase configured the session is sealed with AES-GCM
// under an Argon2id key and a fresh salt on every save.
package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/smartaccess/internal/client/models"
	"github.com/dmitrijs2005/smartaccess/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/dmitrijs2005/smartaccess/internal/cryptox"
	"github.com/dmitrijs2005/smartaccess/internal/dbx"
)

const (
	keySession = "session"
	keyFormat  = "session_format"
	keySalt    = "session_salt"

	formatPlain  = "plain"
	formatSealed = "sealed"
)

type Store struct {
	db         *sql.DB
	passphrase []byte
}

// New returns a store over db. An empty passphrase stores the session as
// plain JSON.
func New(db *sql.DB, passphrase string) *Store {
	return &Store{db: db, passphrase: []byte(passphrase)}
}

func (s *Store) Save(ctx context.Context, sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	format := formatPlain
	var salt []byte
	if len(s.passphrase) > 0 {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		key := cryptox.DeriveKey(s.passphrase, salt)
		defer common.WipeByteArray(key)

		if data, err = cryptox.Seal(data, key); err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
		format = formatSealed
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keySession, data); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyFormat, []byte(format)); err != nil {
			return err
		}
		if salt == nil {
			return repo.Delete(ctx, keySalt)
		}
		return repo.Set(ctx, keySalt, salt)
	})
}

// Load returns ok == false when no session is stored. A sealed session that
// cannot be opened with the configured passphrase yields
// common.ErrLocalDataNotAvailable.
func (s *Store) Load(ctx context.Context) (models.Session, bool, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	format, err := repo.Get(ctx, keyFormat)
	if errors.Is(err, common.ErrorNotFound) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, err
	}

	data, err := repo.Get(ctx, keySession)
	if errors.Is(err, common.ErrorNotFound) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, err
	}

	switch string(format) {
	case formatPlain:
	case formatSealed:
		if data, err = s.open(ctx, repo, data); err != nil {
			return models.Session{}, false, err
		}
	default:
		return models.Session{}, false, fmt.Errorf("unknown session format %q", format)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, true, nil
}

func (s *Store) open(ctx context.Context, repo metadata.Repository, sealed []byte) ([]byte, error) {
	if len(s.passphrase) == 0 {
		return nil, fmt.Errorf("session is sealed and no passphrase is set: %w", common.ErrLocalDataNotAvailable)
	}
	salt, err := repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveKey(s.passphrase, salt)
	defer common.WipeByteArray(key)

	data, err := cryptox.Open(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLocalDataNotAvailable, err)
	}
	return data, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, keySession, keyFormat, keySalt)
	})
}

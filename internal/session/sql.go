package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/scene-clarify/internal/db"
	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

// SQLStore persists sessions in the dialogue_sessions table of a SQLite or
// PostgreSQL database.
type SQLStore struct {
	db      *db.DB
	cfg     Config
	ownsDB  bool
	janitor *janitor
}

// NewSQLStore wraps an open database. The caller keeps ownership of d.
func NewSQLStore(d *db.DB, cfg Config) *SQLStore {
	return newSQLStore(d, cfg, false)
}

func newSQLStore(d *db.DB, cfg Config, ownsDB bool) *SQLStore {
	cfg = cfg.withDefaults()
	s := &SQLStore{db: d, cfg: cfg, ownsDB: ownsDB}
	s.janitor = startJanitor(cfg.JanitorInterval, cfg.Logger, s.purgeExpired)
	return s
}

func (s *SQLStore) Create(ctx context.Context, sess dialogue.Session) (*dialogue.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := s.now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.cfg.TTL)

	state, options, err := encode(&sess)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO dialogue_sessions (id, scene_json, image_data_url, question, state, options, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scene_json = excluded.scene_json,
			image_data_url = excluded.image_data_url,
			question = excluded.question,
			state = excluded.state,
			options = excluded.options,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`),
		sess.ID, sess.SceneJSONText, sess.ImageDataURL, sess.Question, state, options,
		sess.CreatedAt.Unix(), sess.UpdatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return &sess, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*dialogue.Session, error) {
	var (
		sess                          dialogue.Session
		state, options                string
		createdAt, updatedAt, expires int64
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, scene_json, image_data_url, question, state, options, created_at, updated_at, expires_at
		FROM dialogue_sessions WHERE id = ? AND expires_at > ?`), id, s.now().Unix(),
	).Scan(&sess.ID, &sess.SceneJSONText, &sess.ImageDataURL, &sess.Question, &state, &options, &createdAt, &updatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if err := json.Unmarshal([]byte(state), &sess.State); err != nil {
		return nil, fmt.Errorf("decoding session state: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &sess.Options); err != nil {
		return nil, fmt.Errorf("decoding session options: %w", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	sess.ExpiresAt = time.Unix(expires, 0)
	return &sess, nil
}

func (s *SQLStore) Save(ctx context.Context, sess *dialogue.Session) error {
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	state, options, err := encode(sess)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE dialogue_sessions
		SET scene_json = ?, image_data_url = ?, question = ?, state = ?, options = ?, updated_at = ?, expires_at = ?
		WHERE id = ? AND expires_at > ?`),
		sess.SceneJSONText, sess.ImageDataURL, sess.Question, state, options, now.Unix(), expires.Unix(),
		sess.ID, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating session: %w", err)
	} else if n == 0 {
		return notFound(sess.ID)
	}
	sess.UpdatedAt = now
	sess.ExpiresAt = expires
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM dialogue_sessions WHERE id = ? AND expires_at > ?`), id, s.now().Unix())
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Close stops the janitor and closes the database when the store opened it.
func (s *SQLStore) Close() error {
	s.janitor.Stop()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) purgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM dialogue_sessions WHERE expires_at <= ?`), s.now().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLStore) now() time.Time {
	return s.cfg.Now().Truncate(time.Second)
}

func encode(sess *dialogue.Session) (state, options string, err error) {
	st, err := json.Marshal(sess.State)
	if err != nil {
		return "", "", fmt.Errorf("encoding session state: %w", err)
	}
	opts := sess.Options
	if opts == nil {
		opts = []scene.Option{}
	}
	op, err := json.Marshal(opts)
	if err != nil {
		return "", "", fmt.Errorf("encoding session options: %w", err)
	}
	return string(st), string(op), nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/whyme0/chattings/internal/apperror"
	"github.com/whyme0/chattings/internal/model"
	"github.com/whyme0/chattings/internal/repository"
)

// compile-time check that *ChatDB implements repository.ChatRepository
var _ repository.ChatRepository = (*ChatDB)(nil)

// ChatDB implements repository.ChatRepository. Member and moderator id
// lists are serialized to JSON text columns; the whole row is written on
// Update, so a concurrent lost update on the list is possible, an
// accepted limitation of this design.
type ChatDB struct {
	db *DB
}

const chatColumns = `id, owner_id, label, description, name, avatar_url, moderators, members, created_at`

func scanChat(row rowScanner) (*model.Chat, error) {
	var (
		c          model.Chat
		ownerID    sql.NullInt64
		moderators string
		members    string
	)
	err := row.Scan(
		&c.ID,
		&ownerID,
		&c.Label,
		&c.Description,
		&c.Name,
		&c.AvatarURL,
		&moderators,
		&members,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		c.OwnerID = &ownerID.Int64
	}
	if err := json.Unmarshal([]byte(moderators), &c.Moderators); err != nil {
		return nil, fmt.Errorf("sqlite: decoding moderators for chat %d: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(members), &c.Members); err != nil {
		return nil, fmt.Errorf("sqlite: decoding members for chat %d: %w", c.ID, err)
	}
	return &c, nil
}

// encodeIDs marshals an id list, mapping nil to "[]" so a scanned chat
// never carries a null list.
func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding id list: %w", err)
	}
	return string(b), nil
}

func (r *ChatDB) Create(ctx context.Context, c *model.Chat) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chats WHERE name = ?`, c.Name,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking chat name %q: %w", c.Name, err)
		}
		if exists > 0 {
			return apperror.Conflict("name", "A chat with that name already exists.")
		}

		moderators, err := encodeIDs(c.Moderators)
		if err != nil {
			return err
		}
		members, err := encodeIDs(c.Members)
		if err != nil {
			return err
		}

		c.CreatedAt = time.Now()
		if c.AvatarURL == "" {
			c.AvatarURL = model.DefaultChatAvatarURL
		}

		var ownerID any
		if c.OwnerID != nil {
			ownerID = *c.OwnerID
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO chats (owner_id, label, description, name, avatar_url, moderators, members, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ownerID, c.Label, c.Description, c.Name, c.AvatarURL, moderators, members, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting chat %q: %w", c.Name, err)
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading chat id: %w", err)
		}
		return nil
	})
}

func (r *ChatDB) GetByID(ctx context.Context, id int64) (*model.Chat, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE id = ?`, id,
	)
	c, err := scanChat(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("chat", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting chat %d: %w", id, err)
	}
	return c, nil
}

func (r *ChatDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Chat, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats ORDER BY id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chats: %w", err)
	}
	defer rows.Close()

	return collectChats(rows)
}

func (r *ChatDB) ListByOwner(ctx context.Context, ownerID int64) ([]model.Chat, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE owner_id = ? ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chats for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	return collectChats(rows)
}

// ListByMember matches against the JSON members column with json_each, so
// it stays a single query despite the denormalized list.
func (r *ChatDB) ListByMember(ctx context.Context, profileID int64) ([]model.Chat, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats
		 WHERE EXISTS (SELECT 1 FROM json_each(chats.members) WHERE json_each.value = ?)
		 ORDER BY id`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chats for member %d: %w", profileID, err)
	}
	defer rows.Close()

	return collectChats(rows)
}

func collectChats(rows *sql.Rows) ([]model.Chat, error) {
	chats := []model.Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat row: %w", err)
		}
		chats = append(chats, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating chat rows: %w", err)
	}
	return chats, nil
}

// Update persists the chat's mutable fields. The name column is left out
// of the statement entirely: immutability is enforced by the service
// layer, and the storage layer not touching it keeps that promise even if
// a caller mutated the struct.
func (r *ChatDB) Update(ctx context.Context, c *model.Chat) error {
	moderators, err := encodeIDs(c.Moderators)
	if err != nil {
		return err
	}
	members, err := encodeIDs(c.Members)
	if err != nil {
		return err
	}

	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE chats SET label = ?, description = ?, avatar_url = ?, moderators = ?, members = ?
		 WHERE id = ?`,
		c.Label, c.Description, c.AvatarURL, moderators, members, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating chat %d: %w", c.ID, err)
	}
	return requireRow(res, "chat", c.ID)
}

func (r *ChatDB) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting chat %d: %w", id, err)
	}
	return requireRow(res, "chat", id)
}

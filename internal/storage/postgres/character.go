package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/delvegame/delve/internal/protocol"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrCharacterNameTaken is returned when creating a character with a name
// already used by the account.
var ErrCharacterNameTaken = errors.New("character name already taken")

// CharacterRecord is one stored character row.
type CharacterRecord struct {
	ID        int64
	AccountID int64
	SpriteID  int32
	Stats     protocol.CharacterStats
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

const characterColumns = `id, account_id, sprite_id, name,
	strength, intelligence, dexterity, wisdom, constitution, charisma,
	current_hp, max_hp, created_at, updated_at`

func scanCharacter(row interface{ Scan(...any) error }) (CharacterRecord, error) {
	var c CharacterRecord
	err := row.Scan(
		&c.ID, &c.AccountID, &c.SpriteID, &c.Stats.Name,
		&c.Stats.Strength, &c.Stats.Intelligence, &c.Stats.Dexterity,
		&c.Stats.Wisdom, &c.Stats.Constitution, &c.Stats.Charisma,
		&c.Stats.HitPoints, &c.Stats.MaxHitPoints,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Create inserts a new character and returns it with ID and timestamps set.
//
// Precondition: accountID must reference an existing account; stats.Name
// must be non-empty.
// Postcondition: Returns the created record, or ErrCharacterNameTaken on
// duplicate within the account.
func (r *CharacterRepository) Create(ctx context.Context, accountID int64, spriteID int32, stats protocol.CharacterStats) (CharacterRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO characters
			(account_id, sprite_id, name,
			 strength, intelligence, dexterity, wisdom, constitution, charisma,
			 current_hp, max_hp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+characterColumns,
		accountID, spriteID, stats.Name,
		stats.Strength, stats.Intelligence, stats.Dexterity,
		stats.Wisdom, stats.Constitution, stats.Charisma,
		stats.HitPoints, stats.MaxHitPoints,
	)
	c, err := scanCharacter(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return CharacterRecord{}, ErrCharacterNameTaken
		}
		return CharacterRecord{}, fmt.Errorf("inserting character: %w", err)
	}
	return c, nil
}

// SaveCharacter inserts a character owned by the named account. It
// satisfies the creation area's store interface.
//
// Precondition: owner must name an existing account.
func (r *CharacterRepository) SaveCharacter(ctx context.Context, owner string, spriteID int32, stats protocol.CharacterStats) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO characters
			(account_id, sprite_id, name,
			 strength, intelligence, dexterity, wisdom, constitution, charisma,
			 current_hp, max_hp)
		SELECT a.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM accounts a WHERE a.username = $1`,
		owner, spriteID, stats.Name,
		stats.Strength, stats.Intelligence, stats.Dexterity,
		stats.Wisdom, stats.Constitution, stats.Charisma,
		stats.HitPoints, stats.MaxHitPoints,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrCharacterNameTaken
		}
		return fmt.Errorf("inserting character for %s: %w", owner, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListByAccount returns all characters for the given account ID, ordered by created_at.
//
// Precondition: accountID must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountID int64) ([]CharacterRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+characterColumns+`
		FROM characters WHERE account_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	chars := make([]CharacterRecord, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

// SaveState persists a character's hit points after play.
//
// Precondition: id must be > 0.
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row updated.
func (r *CharacterRepository) SaveState(ctx context.Context, id int64, currentHP int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET current_hp = $2, updated_at = NOW()
		WHERE id = $1`,
		id, currentHP,
	)
	if err != nil {
		return fmt.Errorf("saving character state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SaveStateByOwner persists hit points for the named character of the named
// account. Unlike SaveState it needs no row id, so it also covers characters
// created after login.
//
// Postcondition: Returns nil on success, ErrCharacterNotFound if the account
// has no such character.
func (r *CharacterRepository) SaveStateByOwner(ctx context.Context, owner, name string, currentHP int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters c SET current_hp = $3, updated_at = NOW()
		FROM accounts a
		WHERE c.account_id = a.id AND a.username = $1 AND c.name = $2`,
		owner, name, currentHP,
	)
	if err != nil {
		return fmt.Errorf("saving character state for %s: %w", owner, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

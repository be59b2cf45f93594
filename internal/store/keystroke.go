package store

import (
	"database/sql"
	"time"
)

// Keystroke is one key sent while typing.
type Keystroke struct {
	ID        int64
	SessionID string
	Label     string
	Slot      int
	Distance  float64
	CreatedAt time.Time
}

// LabelCount is how often a label was sent.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// KeystrokeRepository provides operations for keystroke history.
type KeystrokeRepository struct {
	db *sql.DB
}

// Keystrokes returns the keystroke repository for this store.
func (s *Store) Keystrokes() *KeystrokeRepository {
	return &KeystrokeRepository{db: s.db}
}

// Create inserts a keystroke and sets its ID and CreatedAt.
func (r *KeystrokeRepository) Create(k *Keystroke) error {
	k.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO keystrokes (session_id, label, slot, distance, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		k.SessionID, k.Label, k.Slot, k.Distance, k.CreatedAt,
	)
	if err != nil {
		return err
	}

	k.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's keystrokes in the order they were sent.
func (r *KeystrokeRepository) ListBySession(sessionID string) ([]*Keystroke, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, label, slot, distance, created_at
		 FROM keystrokes WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keystrokes []*Keystroke
	for rows.Next() {
		k := &Keystroke{}
		if err := rows.Scan(&k.ID, &k.SessionID, &k.Label, &k.Slot, &k.Distance, &k.CreatedAt); err != nil {
			return nil, err
		}
		keystrokes = append(keystrokes, k)
	}
	return keystrokes, rows.Err()
}

// CountByLabel returns per-label totals, most frequent first. An empty
// sessionID counts across all sessions.
func (r *KeystrokeRepository) CountByLabel(sessionID string) ([]LabelCount, error) {
	query := `SELECT label, COUNT(*) AS n FROM keystrokes`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY label ORDER BY n DESC, label ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []LabelCount{}
	for rows.Next() {
		var c LabelCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

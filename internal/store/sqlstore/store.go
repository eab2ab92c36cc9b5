package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/avelez/duet/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		// One connection: sqlite serializes writes anyway, and :memory:
		// databases are per-connection.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	s.createTables()
	return s, nil
}

func (s *SQLStore) createTables() {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		profile_pic TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id INTEGER NOT NULL REFERENCES users(id),
		receiver_id INTEGER NOT NULL REFERENCES users(id),
		text TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	if err != nil {
		panic(err)
	}
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, full_name, email, password, profile_pic) VALUES (?, ?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Username, user.FullName, user.Email, user.Password, user.ProfilePic).Scan(&user.ID)
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, full_name, email, password, profile_pic, created_at FROM users WHERE email = ?")
	err := s.db.QueryRow(query, email).Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Password, &user.ProfilePic, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, full_name, email, password, profile_pic, created_at FROM users WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Password, &user.ProfilePic, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsersExcept returns every user other than id, for the chat partner
// sidebar. Passwords stay in the struct's unexported JSON field and are never
// selected here.
func (s *SQLStore) ListUsersExcept(id int) ([]models.User, error) {
	query := s.rebind("SELECT id, username, full_name, email, profile_pic, created_at FROM users WHERE id != ? ORDER BY username ASC")
	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.ProfilePic, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) UpdateProfilePic(id int, url string) error {
	query := s.rebind("UPDATE users SET profile_pic = ? WHERE id = ?")
	result, err := s.db.Exec(query, url, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLStore) SaveMessage(msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO messages (id, sender_id, receiver_id, text, image, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	_, err := s.db.Exec(query, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.Image, msg.CreatedAt)
	return err
}

func (s *SQLStore) GetMessageByID(id string) (*models.Message, error) {
	var m models.Message
	query := s.rebind("SELECT id, sender_id, receiver_id, text, image, created_at FROM messages WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetConversation returns every message between the two users, in either
// direction, oldest first.
func (s *SQLStore) GetConversation(userA, userB int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT id, sender_id, receiver_id, text, image, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC
	`)
	rows, err := s.db.Query(query, userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) DeleteMessage(id string) error {
	query := s.rebind("DELETE FROM messages WHERE id = ?")
	result, err := s.db.Exec(query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      StaffRole `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserStore struct {
	DB *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{DB: db}
}

// Authenticate checks credentials against the stored bcrypt hash. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := s.DB.QueryRow(ctx, `
		select id, username, name, role, password_hash, is_active, created_at
		from users where username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Name, &u.Role, &hash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !u.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, username, name, password string, role StaffRole) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	var u User
	err = s.DB.QueryRow(ctx, `
		insert into users (username, name, role, password_hash, is_active, created_at)
		values ($1, $2, $3, $4, true, now())
		returning id, username, name, role, is_active, created_at
	`, username, name, string(role), string(hash)).Scan(
		&u.ID, &u.Username, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

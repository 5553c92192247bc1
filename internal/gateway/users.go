// Package gateway is the authenticated edge: it issues bearer tokens and
// forwards /api calls to the orchestrator with the user's identity attached.
package gateway

import (
	"golang.org/x/crypto/bcrypt"
)

// User is the public shape of an account.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Disabled bool   `json:"disabled"`
}

type storedUser struct {
	User
	hash []byte
}

// UserDB is an in-memory account store seeded with a demo user. A real
// deployment would back this with a database.
type UserDB struct {
	users map[string]storedUser
}

func NewUserDB() *UserDB {
	db := &UserDB{users: make(map[string]storedUser)}
	db.add(User{
		Username: "testuser",
		Email:    "test@example.com",
		FullName: "Test User",
	}, "testpassword")
	return db
}

func (db *UserDB) add(u User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	db.users[u.Username] = storedUser{User: u, hash: hash}
}

// Get looks an account up by username.
func (db *UserDB) Get(username string) (User, bool) {
	u, ok := db.users[username]
	return u.User, ok
}

// Authenticate checks a password grant.
func (db *UserDB) Authenticate(username, password string) (User, bool) {
	u, ok := db.users[username]
	if !ok {
		return User{}, false
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return User{}, false
	}
	return u.User, true
}

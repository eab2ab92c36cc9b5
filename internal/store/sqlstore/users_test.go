package sqlstore

import (
	"testing"

	"github.com/avelez/duet/internal/models"
)

func TestCreateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := &models.User{Username: "alice", FullName: "Alice A", Email: "alice@example.com", Password: "hash"}
	if err := testStore.CreateUser(user); err != nil {
		t.Errorf("Failed to create user: %v", err)
	}
	if user.ID == 0 {
		t.Error("Expected non-zero user ID")
	}

	// Duplicate email
	dup := &models.User{Username: "alice2", Email: "alice@example.com", Password: "hash"}
	if err := testStore.CreateUser(dup); err == nil {
		t.Error("Expected error for duplicate email, got nil")
	}
}

func TestGetUserByEmail(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	testStore.CreateUser(&models.User{Username: "alice", Email: "alice@example.com", Password: "hash"})

	user, err := testStore.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Expected username 'alice', got '%s'", user.Username)
	}

	if _, err := testStore.GetUserByEmail("nobody@example.com"); err == nil {
		t.Error("Expected error for unknown email, got nil")
	}
}

func TestListUsersExcept(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	testStore.CreateUser(alice)
	testStore.CreateUser(&models.User{Username: "bob", Email: "bob@example.com", Password: "hash"})
	testStore.CreateUser(&models.User{Username: "carol", Email: "carol@example.com", Password: "hash"})

	users, err := testStore.ListUsersExcept(alice.ID)
	if err != nil {
		t.Fatalf("ListUsersExcept failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.ID == alice.ID {
			t.Error("Expected caller to be excluded from the list")
		}
		if u.Password != "" {
			t.Error("Expected password to be excluded from the listing")
		}
	}
}

func TestUpdateProfilePic(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	testStore.CreateUser(user)

	if err := testStore.UpdateProfilePic(user.ID, "/uploads/pic.png"); err != nil {
		t.Errorf("UpdateProfilePic failed: %v", err)
	}

	got, _ := testStore.GetUserByID(user.ID)
	if got.ProfilePic != "/uploads/pic.png" {
		t.Errorf("Expected updated profile pic, got '%s'", got.ProfilePic)
	}

	if err := testStore.UpdateProfilePic(9999, "/uploads/pic.png"); err == nil {
		t.Error("Expected error for unknown user, got nil")
	}
}

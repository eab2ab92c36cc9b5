package store

import "github.com/avelez/duet/internal/models"

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	ListUsersExcept(id int) ([]models.User, error)
	UpdateProfilePic(id int, url string) error

	// Message operations
	SaveMessage(msg *models.Message) error
	GetMessageByID(id string) (*models.Message, error)
	GetConversation(userA, userB int) ([]models.Message, error)
	DeleteMessage(id string) error
}

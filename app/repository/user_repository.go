package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmarkov/adpulse/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByResetPasswordToken retrieves a user by a pending password reset token
func (r *userRepository) GetByResetPasswordToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("reset_password_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves changes to an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// AddPlatform marks a platform as authenticated for the user. Inserting the
// same platform twice hits the unique index and is a no-op, which keeps the
// authenticated-platform list a set.
func (r *userRepository) AddPlatform(userID uint, platform string) error {
	entry := models.UserPlatform{UserID: userID, Platform: platform}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "platform"},
		},
		DoNothing: true,
	}).Create(&entry).Error
}

// RemovePlatform removes a platform from the user's authenticated set
func (r *userRepository) RemovePlatform(userID uint, platform string) error {
	return r.db.Where("user_id = ? AND platform = ?", userID, platform).
		Delete(&models.UserPlatform{}).Error
}

// ListPlatforms returns the names of all platforms the user has connected
func (r *userRepository) ListPlatforms(userID uint) ([]string, error) {
	var names []string
	err := r.db.Model(&models.UserPlatform{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("platform", &names).Error
	return names, err
}

// Package feedback provides database operations for the feedback log.
package feedback

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBodyRequired = errors.New("feedback text is required")
)

// Repository handles all feedback database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new feedback repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Submit inserts a timestamped feedback record for (user, book). The book
// must still exist; title and author are denormalized onto the row.
func (r *Repository) Submit(userID, bookID uint, body string) (*entities.Feedback, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrBodyRequired
	}

	var book entities.Book
	if err := r.db.First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	record := &entities.Feedback{
		UserID:   userID,
		BookID:   bookID,
		BookName: book.Name,
		Author:   book.Author,
		Body:     body,
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return record, nil
}

// GetForBook returns feedback for a book in insertion order.
func (r *Repository) GetForBook(bookID uint) ([]entities.Feedback, error) {
	var records []entities.Feedback
	err := r.db.Where("book_id = ?", bookID).Order("id ASC").Find(&records).Error
	return records, err
}

// GetAll returns every feedback record in insertion order. Admin view.
func (r *Repository) GetAll() ([]entities.Feedback, error) {
	var records []entities.Feedback
	err := r.db.Order("id ASC").Find(&records).Error
	return records, err
}

// DeleteOrphans removes feedback rows whose book no longer exists. Book
// deletion deliberately leaves feedback behind, so this runs only when an
// admin asks for it.
func (r *Repository) DeleteOrphans() (int64, error) {
	result := r.db.
		Where("book_id NOT IN (?)", r.db.Model(&entities.Book{}).Select("id")).
		Delete(&entities.Feedback{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphan feedback: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Package cart provides database operations for pending book requests.
package cart

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrEntryNotFound    = errors.New("cart entry not found")
	ErrAlreadyRequested = errors.New("book already requested")
	ErrAlreadyIssued    = errors.New("book already issued to this user")
	ErrCartFull         = errors.New("cart capacity reached")
	ErrInvalidDuration  = errors.New("requested duration must be positive")
)

// Repository handles all cart database operations.
type Repository struct {
	db       *gorm.DB
	capacity int
	maxDays  int
}

// NewRepository creates a new cart repository. capacity bounds the number of
// concurrent entries per user, maxDays bounds a single requested duration.
func NewRepository(db *gorm.DB, capacity, maxDays int) *Repository {
	return &Repository{db: db, capacity: capacity, maxDays: maxDays}
}

// Capacity returns the per-user cart limit.
func (r *Repository) Capacity() int {
	return r.capacity
}

// RequestBook creates a cart entry for (user, book) with the requested loan
// duration in days. Requesting an already-requested book returns
// ErrAlreadyRequested with the existing entry; callers treat that as a
// notice, not a failure.
func (r *Repository) RequestBook(userID, bookID uint, days int) (*entities.CartEntry, error) {
	if days <= 0 || (r.maxDays > 0 && days > r.maxDays) {
		return nil, ErrInvalidDuration
	}

	var entry *entities.CartEntry
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		var loanCount int64
		if err := tx.Model(&entities.Loan{}).
			Where("user_id = ? AND book_id = ?", userID, bookID).
			Count(&loanCount).Error; err != nil {
			return err
		}
		if loanCount > 0 {
			return ErrAlreadyIssued
		}

		var existing entities.CartEntry
		err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&existing).Error
		if err == nil {
			entry = &existing
			return ErrAlreadyRequested
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var held int64
		if err := tx.Model(&entities.CartEntry{}).
			Where("user_id = ?", userID).
			Count(&held).Error; err != nil {
			return err
		}
		if held >= int64(r.capacity) {
			return ErrCartFull
		}

		var user entities.User
		if err := tx.First(&user, userID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		created := &entities.CartEntry{
			UserID:        userID,
			BookID:        bookID,
			RequesterName: user.Name,
			RequestedDays: days,
		}
		if err := tx.Create(created).Error; err != nil {
			// A concurrent first request can slip past the duplicate
			// check and land on the unique index instead
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRequested
			}
			return fmt.Errorf("failed to create cart entry: %w", err)
		}
		entry = created
		return nil
	})
	if errors.Is(err, ErrAlreadyRequested) && entry == nil {
		var existing entities.CartEntry
		if lookupErr := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).
			First(&existing).Error; lookupErr == nil {
			entry = &existing
		}
	}
	if err != nil {
		return entry, err
	}
	return entry, nil
}

// RejectEntry deletes a pending request. Used by admins to decline a request
// and by the issue path after promotion.
func (r *Repository) RejectEntry(entryID uint) error {
	result := r.db.Delete(&entities.CartEntry{}, entryID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete cart entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// GetEntryByID retrieves a cart entry with its book.
func (r *Repository) GetEntryByID(id uint) (*entities.CartEntry, error) {
	var entry entities.CartEntry
	err := r.db.Preload("Book").First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetAllEntries returns every pending request, oldest first. Admin view.
func (r *Repository) GetAllEntries() ([]entities.CartEntry, error) {
	var entries []entities.CartEntry
	err := r.db.Preload("Book").Order("id ASC").Find(&entries).Error
	return entries, err
}

// GetEntriesForUser returns a user's pending requests, oldest first.
func (r *Repository) GetEntriesForUser(userID uint) ([]entities.CartEntry, error) {
	var entries []entities.CartEntry
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// CountForUser returns the number of entries a user currently holds.
func (r *Repository) CountForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.CartEntry{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

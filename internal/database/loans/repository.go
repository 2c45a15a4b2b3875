// Package loans provides database operations for the loan ledger.
//
// Issuing promotes a cart entry into a loan inside one transaction: the
// entry is removed with a compare-and-delete on its id, so two admins racing
// on the same entry cannot both succeed, and the unique (user_id, book_id)
// index on loans keeps a pair from ever holding two active loans.
package loans

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrEntryNotFound = errors.New("cart entry not found")
	ErrBookNotFound  = errors.New("book not found")
	ErrLoanNotFound  = errors.New("loan not found")
	ErrAlreadyIssued = errors.New("an active loan already exists for this user and book")
)

// Repository handles all loan ledger database operations.
type Repository struct {
	db          *gorm.DB
	defaultDays int
}

// NewRepository creates a new loan ledger repository. defaultDays is used
// when a cart entry carries no requested duration.
func NewRepository(db *gorm.DB, defaultDays int) *Repository {
	return &Repository{db: db, defaultDays: defaultDays}
}

// Issue promotes the cart entry into a loan. The loan snapshots the book's
// name and author at issuance time; the entry is gone afterwards.
func (r *Repository) Issue(entryID uint) (*entities.Loan, error) {
	var loan *entities.Loan
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var entry entities.CartEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}

		var book entities.Book
		if err := tx.First(&book, entry.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		// Compare-and-delete: if another admin issued or rejected this
		// entry concurrently, RowsAffected is 0 and the issue fails.
		result := tx.Delete(&entities.CartEntry{}, entryID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrEntryNotFound
		}

		days := entry.RequestedDays
		if days <= 0 {
			days = r.defaultDays
		}

		now := time.Now()
		created := &entities.Loan{
			UserID:    entry.UserID,
			BookID:    entry.BookID,
			BookName:  book.Name,
			Author:    book.Author,
			IssueDate: now,
			DueDate:   now.AddDate(0, 0, days),
		}
		if err := tx.Create(created).Error; err != nil {
			// The unique (user_id, book_id) index rejects a second
			// active loan for the same pair.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyIssued
			}
			return fmt.Errorf("failed to create loan: %w", err)
		}
		loan = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return deletes the active loan for (user, book). Single atomic row removal.
func (r *Repository) Return(userID, bookID uint) error {
	result := r.db.
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.Loan{})
	if result.Error != nil {
		return fmt.Errorf("failed to return loan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// Revoke deletes the loan regardless of its due date. Admin operation.
func (r *Repository) Revoke(userID, bookID uint) error {
	return r.Return(userID, bookID)
}

// Sweep deletes every loan whose due date is strictly before asOf and
// returns the number revoked. Running it twice with the same date deletes
// nothing on the second run.
func (r *Repository) Sweep(asOf time.Time) (int64, error) {
	result := r.db.
		Where("due_date < ?", asOf).
		Delete(&entities.Loan{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep overdue loans: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetByID retrieves a single loan.
func (r *Repository) GetByID(id uint) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// GetAll returns every active loan, oldest first. Admin view.
func (r *Repository) GetAll() ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Order("id ASC").Find(&loans).Error
	return loans, err
}

// GetForUser returns a user's active loans, oldest first.
func (r *Repository) GetForUser(userID uint) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&loans).Error
	return loans, err
}

// GetOverdue returns loans past due as of the given date. Admin view.
func (r *Repository) GetOverdue(asOf time.Time) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Where("due_date < ?", asOf).Order("due_date ASC").Find(&loans).Error
	return loans, err
}

// HasActiveLoan reports whether (user, book) holds an active loan.
func (r *Repository) HasActiveLoan(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

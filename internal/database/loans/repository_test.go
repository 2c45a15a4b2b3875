package loans

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/cart"
	"github.com/openshelf/openshelf/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_loans_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, cleanup
}

func seedRequest(t *testing.T, db *gorm.DB, bookName string, days int) (*entities.User, *entities.Book, *entities.CartEntry) {
	t.Helper()

	user := entities.User{Name: "Asha", Username: "asha_" + strings.ToLower(strings.ReplaceAll(bookName, " ", "_"))}
	require.NoError(t, db.Create(&user).Error)

	section := entities.Section{Name: "Fiction " + bookName}
	require.NoError(t, db.Create(&section).Error)
	book := entities.Book{Name: bookName, Author: "Frank Herbert", SectionID: section.ID}
	require.NoError(t, db.Create(&book).Error)

	entry := entities.CartEntry{UserID: user.ID, BookID: book.ID, RequesterName: user.Name, RequestedDays: days}
	require.NoError(t, db.Create(&entry).Error)

	return &user, &book, &entry
}

func TestRepository_Issue(t *testing.T) {
	t.Run("promotes entry into a loan with snapshots", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		repo := NewRepository(db, 7)

		user, book, entry := seedRequest(t, db, "Dune", 14)

		before := time.Now()
		loan, err := repo.Issue(entry.ID)
		require.NoError(t, err)

		assert.Equal(t, user.ID, loan.UserID)
		assert.Equal(t, book.ID, loan.BookID)
		assert.Equal(t, "Dune", loan.BookName)
		assert.Equal(t, "Frank Herbert", loan.Author)
		assert.False(t, loan.IssueDate.Before(before.Add(-time.Second)))

		// Due date honours the requested duration
		wantDue := loan.IssueDate.AddDate(0, 0, 14)
		assert.WithinDuration(t, wantDue, loan.DueDate, time.Second)

		// The entry is gone
		var count int64
		db.Model(&entities.CartEntry{}).Where("id = ?", entry.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("falls back to the default duration", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		repo := NewRepository(db, 7)

		_, _, entry := seedRequest(t, db, "Dune", 0)

		loan, err := repo.Issue(entry.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, loan.IssueDate.AddDate(0, 0, 7), loan.DueDate, time.Second)
	})

	t.Run("second issue of the same entry fails", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		repo := NewRepository(db, 7)

		_, _, entry := seedRequest(t, db, "Dune", 7)

		_, err := repo.Issue(entry.ID)
		require.NoError(t, err)

		_, err = repo.Issue(entry.ID)
		assert.ErrorIs(t, err, ErrEntryNotFound)

		var count int64
		db.Model(&entities.Loan{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unique index rejects a second loan for the same pair", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		repo := NewRepository(db, 7)

		user, book, entry := seedRequest(t, db, "Dune", 7)

		_, err := repo.Issue(entry.ID)
		require.NoError(t, err)

		// A new entry for the same pair slipped in before the loan check
		dup := entities.CartEntry{UserID: user.ID, BookID: book.ID, RequesterName: user.Name, RequestedDays: 7}
		require.NoError(t, db.Create(&dup).Error)

		_, err = repo.Issue(dup.ID)
		assert.ErrorIs(t, err, ErrAlreadyIssued)
	})

	t.Run("missing entry returns not found", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()
		repo := NewRepository(db, 7)

		_, err := repo.Issue(9999)
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})
}

func TestRepository_ReturnAndRevoke(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, 7)

	t.Run("return removes the active loan", func(t *testing.T) {
		user, book, entry := seedRequest(t, db, "Dune", 7)
		_, err := repo.Issue(entry.ID)
		require.NoError(t, err)

		require.NoError(t, repo.Return(user.ID, book.ID))

		has, err := repo.HasActiveLoan(user.ID, book.ID)
		require.NoError(t, err)
		assert.False(t, has)

		// A second return finds nothing
		assert.ErrorIs(t, repo.Return(user.ID, book.ID), ErrLoanNotFound)
	})

	t.Run("revoke removes the loan regardless of due date", func(t *testing.T) {
		user, book, entry := seedRequest(t, db, "Neuromancer", 30)
		_, err := repo.Issue(entry.ID)
		require.NoError(t, err)

		require.NoError(t, repo.Revoke(user.ID, book.ID))
		assert.ErrorIs(t, repo.Revoke(user.ID, book.ID), ErrLoanNotFound)
	})
}

func TestRepository_Sweep(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db, 7)

	now := time.Now()
	overdue := entities.Loan{
		UserID: 1, BookID: 1, BookName: "Dune", Author: "Frank Herbert",
		IssueDate: now.AddDate(0, 0, -10), DueDate: now.AddDate(0, 0, -3),
	}
	current := entities.Loan{
		UserID: 1, BookID: 2, BookName: "SPQR", Author: "Mary Beard",
		IssueDate: now, DueDate: now.AddDate(0, 0, 7),
	}
	require.NoError(t, db.Create(&overdue).Error)
	require.NoError(t, db.Create(&current).Error)

	t.Run("revokes only loans past due", func(t *testing.T) {
		listed, err := repo.GetOverdue(now)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Dune", listed[0].BookName)

		revoked, err := repo.Sweep(now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), revoked)

		remaining, err := repo.GetAll()
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "SPQR", remaining[0].BookName)
	})

	t.Run("second sweep with the same date is a no-op", func(t *testing.T) {
		revoked, err := repo.Sweep(now)
		require.NoError(t, err)
		assert.Zero(t, revoked)
	})
}

// The full lifecycle: request, issue, book edit, overdue, sweep.
func TestLoanLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cartRepo := cart.NewRepository(db, 5, 90)
	loanRepo := NewRepository(db, 7)

	user := entities.User{Name: "Asha", Username: "asha"}
	require.NoError(t, db.Create(&user).Error)
	section := entities.Section{Name: "Fiction"}
	require.NoError(t, db.Create(&section).Error)
	book := entities.Book{Name: "Dune", Author: "Frank Herbert", SectionID: section.ID}
	require.NoError(t, db.Create(&book).Error)

	entry, err := cartRepo.RequestBook(user.ID, book.ID, 14)
	require.NoError(t, err)

	loan, err := loanRepo.Issue(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", loan.BookName)

	// Holding the loan blocks a fresh request for the same book
	_, err = cartRepo.RequestBook(user.ID, book.ID, 7)
	assert.ErrorIs(t, err, cart.ErrAlreadyIssued)

	// Force the loan overdue and sweep it
	require.NoError(t, db.Model(&entities.Loan{}).
		Where("id = ?", loan.ID).
		Update("due_date", time.Now().AddDate(0, 0, -1)).Error)

	revoked, err := loanRepo.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)

	// The pair is free again
	_, err = cartRepo.RequestBook(user.ID, book.ID, 7)
	assert.NoError(t, err)
}

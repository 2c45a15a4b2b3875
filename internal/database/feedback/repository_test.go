package feedback

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/catalog"
	"github.com/openshelf/openshelf/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_feedback_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, cleanup
}

func seedBook(t *testing.T, db *gorm.DB, name string) *entities.Book {
	t.Helper()
	section := entities.Section{Name: "Fiction " + name}
	require.NoError(t, db.Create(&section).Error)
	book := entities.Book{Name: name, Author: "Frank Herbert", SectionID: section.ID}
	require.NoError(t, db.Create(&book).Error)
	return &book
}

func TestRepository_Submit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	book := seedBook(t, db, "Dune")

	t.Run("records a denormalized row", func(t *testing.T) {
		record, err := repo.Submit(1, book.ID, "  A slow start but worth it.  ")
		require.NoError(t, err)
		assert.NotZero(t, record.ID)
		assert.Equal(t, "Dune", record.BookName)
		assert.Equal(t, "Frank Herbert", record.Author)
		assert.Equal(t, "A slow start but worth it.", record.Body)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := repo.Submit(1, book.ID, "   ")
		assert.ErrorIs(t, err, ErrBodyRequired)
	})

	t.Run("rejects missing book", func(t *testing.T) {
		_, err := repo.Submit(1, 9999, "nice")
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("same user may submit repeatedly", func(t *testing.T) {
		_, err := repo.Submit(1, book.ID, "Second read, still good.")
		require.NoError(t, err)

		records, err := repo.GetForBook(book.ID)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestRepository_DeleteOrphans(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)
	catalogRepo := catalog.NewRepository(db)

	dune := seedBook(t, db, "Dune")
	spqr := seedBook(t, db, "SPQR")

	_, err := repo.Submit(1, dune.ID, "great")
	require.NoError(t, err)
	_, err = repo.Submit(2, spqr.ID, "dense")
	require.NoError(t, err)

	// Deleting the book keeps its feedback in place
	require.NoError(t, catalogRepo.DeleteBook(dune.ID))
	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Explicit cleanup removes only the orphans
	deleted, err := repo.DeleteOrphans()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	all, err = repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "SPQR", all[0].BookName)

	// Nothing left to clean
	deleted, err = repo.DeleteOrphans()
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

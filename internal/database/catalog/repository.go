// Package catalog provides database operations for sections and books.
//
// Deletion is transactional: removing a book deletes its cart entries and
// loans first, and removing a section walks every contained book through the
// same path before dropping the section row. Feedback rows are intentionally
// left in place; see the feedback package for orphan cleanup.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

var (
	ErrSectionExists   = errors.New("section with this name already exists")
	ErrSectionNotFound = errors.New("section not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrNameRequired    = errors.New("name is required")
	ErrAuthorRequired  = errors.New("author is required")
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateSection adds a new section with a unique name.
func (r *Repository) CreateSection(name string) (*entities.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var existing entities.Section
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, ErrSectionExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing section: %w", err)
	}

	section := &entities.Section{Name: name}
	if err := r.db.Create(section).Error; err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return section, nil
}

// RenameSection updates a section's name, keeping name uniqueness.
func (r *Repository) RenameSection(id uint, name string) (*entities.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	section, err := r.GetSectionByID(id)
	if err != nil {
		return nil, err
	}

	var existing entities.Section
	err = r.db.Where("name = ? AND id != ?", name, id).First(&existing).Error
	if err == nil {
		return nil, ErrSectionExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing section: %w", err)
	}

	if err := r.db.Model(section).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename section: %w", err)
	}
	section.Name = name
	return section, nil
}

// GetSectionByID retrieves a section with its books.
func (r *Repository) GetSectionByID(id uint) (*entities.Section, error) {
	var section entities.Section
	err := r.db.Preload("Books").First(&section, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &section, nil
}

// GetAllSections returns all sections with their books, ordered by name.
func (r *Repository) GetAllSections() ([]entities.Section, error) {
	var sections []entities.Section
	err := r.db.Preload("Books").Order("name ASC").Find(&sections).Error
	return sections, err
}

// SearchSections returns sections whose name, or whose books' title or
// author, contains the query substring (case-insensitive). Each matching
// section is returned with only the matching books, except for a section
// name match which includes all of its books.
func (r *Repository) SearchSections(query string) ([]entities.Section, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.GetAllSections()
	}
	needle := strings.ToLower(query)
	pattern := "%" + needle + "%"

	var sections []entities.Section
	err := r.db.Preload("Books").Order("name ASC").Find(&sections).Error
	if err != nil {
		return nil, err
	}

	var matched []entities.Section
	for _, section := range sections {
		if strings.Contains(strings.ToLower(section.Name), needle) {
			matched = append(matched, section)
			continue
		}

		var books []entities.Book
		err := r.db.
			Where("section_id = ?", section.ID).
			Where("LOWER(name) LIKE ? OR LOWER(author) LIKE ?", pattern, pattern).
			Find(&books).Error
		if err != nil {
			return nil, err
		}
		if len(books) > 0 {
			section.Books = books
			matched = append(matched, section)
		}
	}
	return matched, nil
}

// DeleteSection removes a section and cascades to its books, which in turn
// cascades to cart entries and loans referencing them.
func (r *Repository) DeleteSection(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var section entities.Section
		if err := tx.Preload("Books").First(&section, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSectionNotFound
			}
			return err
		}

		for _, book := range section.Books {
			if err := deleteBookTx(tx, book.ID); err != nil {
				return err
			}
		}

		return tx.Delete(&entities.Section{}, id).Error
	})
}

// CreateBook adds a book under an existing section.
func (r *Repository) CreateBook(sectionID uint, name, author, content string) (*entities.Book, error) {
	name = strings.TrimSpace(name)
	author = strings.TrimSpace(author)
	if name == "" {
		return nil, ErrNameRequired
	}
	if author == "" {
		return nil, ErrAuthorRequired
	}

	var section entities.Section
	if err := r.db.First(&section, sectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}

	book := &entities.Book{
		Name:      name,
		Author:    author,
		Content:   content,
		SectionID: sectionID,
	}
	if err := r.db.Create(book).Error; err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return book, nil
}

// GetBookByID retrieves a single book.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// UpdateBook edits a book's fields and re-propagates name/author onto active
// loan snapshots so the ledger keeps matching what the catalog shows.
func (r *Repository) UpdateBook(id uint, sectionID uint, name, author, content string) (*entities.Book, error) {
	name = strings.TrimSpace(name)
	author = strings.TrimSpace(author)
	if name == "" {
		return nil, ErrNameRequired
	}
	if author == "" {
		return nil, ErrAuthorRequired
	}

	var book *entities.Book
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var b entities.Book
		if err := tx.First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if sectionID != 0 && sectionID != b.SectionID {
			var section entities.Section
			if err := tx.First(&section, sectionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSectionNotFound
				}
				return err
			}
			b.SectionID = sectionID
		}

		b.Name = name
		b.Author = author
		b.Content = content
		if err := tx.Save(&b).Error; err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}

		// Keep active loan snapshots in step with the edited book
		err := tx.Model(&entities.Loan{}).
			Where("book_id = ?", id).
			Updates(map[string]any{"book_name": name, "author": author}).Error
		if err != nil {
			return fmt.Errorf("failed to update loan snapshots: %w", err)
		}

		book = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes a book after deleting every cart entry and loan that
// references it. Feedback rows are left untouched.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		return deleteBookTx(tx, id)
	})
}

// deleteBookTx removes a book's dependents (cart entries, loans) and then the
// book row itself, all within the caller's transaction.
func deleteBookTx(tx *gorm.DB, bookID uint) error {
	if err := tx.Where("book_id = ?", bookID).Delete(&entities.CartEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart entries for book %d: %w", bookID, err)
	}
	if err := tx.Where("book_id = ?", bookID).Delete(&entities.Loan{}).Error; err != nil {
		return fmt.Errorf("failed to delete loans for book %d: %w", bookID, err)
	}
	if err := tx.Delete(&entities.Book{}, bookID).Error; err != nil {
		return fmt.Errorf("failed to delete book %d: %w", bookID, err)
	}
	return nil
}

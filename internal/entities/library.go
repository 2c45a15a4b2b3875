package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64" json:"name"`
	Username     string    `gorm:"uniqueIndex;size:32" json:"username"`
	PasswordHash string    `gorm:"size:256" json:"-"`
	Role         UserRole  `gorm:"size:20;default:'member'" json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// Login throttling state
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may perform administrative operations.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

type Section struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64" json:"name"`
	Books     []Book    `gorm:"foreignKey:SectionID" json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:256" json:"name"`
	Author    string    `gorm:"index;size:256" json:"author"`
	Content   string    `gorm:"type:text" json:"content,omitempty"`
	SectionID uint      `gorm:"index" json:"section_id"`
	Section   Section   `gorm:"foreignKey:SectionID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartEntry is a pending, unapproved request by a user for a book.
// A (user, book) pair appears at most once; the unique index enforces it.
type CartEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex:idx_cart_user_book" json:"user_id"`
	BookID        uint      `gorm:"uniqueIndex:idx_cart_user_book" json:"book_id"`
	RequesterName string    `gorm:"size:64" json:"requester_name"`
	RequestedDays int       `gorm:"default:7" json:"requested_days"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	Book          Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Loan is an approved, active checkout. BookName and Author are snapshots
// taken from the book at issuance time, not live references.
type Loan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_loan_user_book" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_loan_user_book" json:"book_id"`
	BookName  string    `gorm:"size:256" json:"book_name"`
	Author    string    `gorm:"size:256" json:"author"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `gorm:"index" json:"due_date"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Overdue reports whether the loan is past due as of the given date.
func (l Loan) Overdue(asOf time.Time) bool {
	return l.DueDate.Before(asOf)
}

// Feedback is free-text commentary a user attaches to a book. Title and
// Author are denormalized so the text stays readable if the book is edited.
// Rows are not cascaded on book deletion; see the orphan cleanup task.
type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	BookName  string    `gorm:"size:256" json:"book_name"`
	Author    string    `gorm:"size:256" json:"author"`
	Body      string    `gorm:"type:text" json:"body"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Section) TableName() string {
	return "sections"
}

func (Book) TableName() string {
	return "books"
}

func (CartEntry) TableName() string {
	return "cart_entries"
}

func (Loan) TableName() string {
	return "loans"
}

func (Feedback) TableName() string {
	return "feedback"
}

// Package export renders books as self-contained downloadable documents.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/entities"
)

// RenderBookDocument produces a markdown document embedding the book's
// title, author and full content. It is a pure function of the book's
// current state; nothing is persisted.
func RenderBookDocument(book *entities.Book, now time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "---\n")
	fmt.Fprintf(&b, "title: %s\n", book.Name)
	fmt.Fprintf(&b, "author: %s\n", book.Author)
	fmt.Fprintf(&b, "exported_at: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", book.Name)
	fmt.Fprintf(&b, "*by %s*\n\n", book.Author)

	content := strings.TrimSpace(book.Content)
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// DocumentFileName returns a filesystem-safe download name for the book.
func DocumentFileName(book *entities.Book) string {
	name := strings.TrimSpace(book.Name)
	if name == "" {
		name = fmt.Sprintf("book-%d", book.ID)
	}
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"\"", "",
		"*", "",
		"?", "",
		"<", "",
		">", "",
		"|", "-",
	)
	return replacer.Replace(name) + ".md"
}

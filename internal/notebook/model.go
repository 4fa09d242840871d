package notebook

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidInput indicates that create or update input failed validation.
	ErrInvalidInput = errors.New("notebook: invalid input")
	// ErrCollectionNotFound indicates that a referenced collection does not exist.
	ErrCollectionNotFound = errors.New("notebook: collection not found")
	// ErrEntryNotFound indicates that a referenced entry does not exist.
	ErrEntryNotFound = errors.New("notebook: entry not found")
)

// Collection is a named grouping of entries.
type Collection struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	OwnerID     string    `json:"user_id"`

	// EntryCount is derived at read time and never persisted.
	EntryCount int `json:"-"`
}

// Entry is one numbered unit of content belonging to a collection.
type Entry struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Ordinal      int       `json:"ordinal"`
	Title        string    `json:"title"`
	Aim          string    `json:"aim"`
	Theory       string    `json:"theory"`
	Steps        string    `json:"steps"`
	Code         string    `json:"code"`
	Language     string    `json:"language"`
	Attachments  []string  `json:"attachments"`
	Conclusion   string    `json:"conclusion"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	OwnerID      string    `json:"user_id"`
}

// CollectionInput carries the user-editable fields of a new collection.
type CollectionInput struct {
	Title       string `validate:"required,max=200"`
	Subject     string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
}

func (input CollectionInput) normalized() CollectionInput {
	return CollectionInput{
		Title:       strings.TrimSpace(input.Title),
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
	}
}

// CollectionPatch lists the collection fields to change; nil fields are kept.
type CollectionPatch struct {
	Title       *string
	Subject     *string
	Description *string
}

// EntryInput carries the user-editable fields of a new entry.
type EntryInput struct {
	CollectionID string `validate:"required"`
	Title        string `validate:"required,max=200"`
	Aim          string
	Theory       string
	Steps        string
	Code         string `validate:"required"`
	Language     string
	Attachments  []string
	Conclusion   string
}

func (input EntryInput) normalized() EntryInput {
	attachments := make([]string, 0, len(input.Attachments))
	attachments = append(attachments, input.Attachments...)
	return EntryInput{
		CollectionID: strings.TrimSpace(input.CollectionID),
		Title:        strings.TrimSpace(input.Title),
		Aim:          input.Aim,
		Theory:       input.Theory,
		Steps:        input.Steps,
		Code:         input.Code,
		Language:     NormalizeLanguage(input.Language),
		Attachments:  attachments,
		Conclusion:   input.Conclusion,
	}
}

// EntryPatch lists the entry fields to change; nil fields are kept.
type EntryPatch struct {
	Title       *string
	Aim         *string
	Theory      *string
	Steps       *string
	Code        *string
	Language    *string
	Attachments *[]string
	Conclusion  *string
}

// LanguagePlainText is the fallback code language tag.
const LanguagePlainText = "plaintext"

// SupportedLanguages lists the code language tags an entry may carry.
var SupportedLanguages = []string{"python", "java", "javascript", "css", "sql", "c", "cpp", LanguagePlainText}

// NormalizeLanguage lowercases tag and maps unknown tags to plaintext.
func NormalizeLanguage(tag string) string {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	for _, supported := range SupportedLanguages {
		if normalized == supported {
			return normalized
		}
	}
	return LanguagePlainText
}

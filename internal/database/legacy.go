package database

import (
	"encoding/json"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/assets"
	"github.com/MarcoPoloResearchLab/labcraft/internal/drafts"
	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
	"github.com/MarcoPoloResearchLab/labcraft/internal/users"
)

// legacyConversion rewrites the value stored under a key of an earlier
// release into the record shape of its current namespace.
type legacyConversion struct {
	key     string
	current kvstore.Namespace
	convert func(raw string) (string, error)
}

var legacyConversions = []legacyConversion{
	{key: "practical_manual_manuals", current: kvstore.NamespaceCollections, convert: convertLegacyManuals},
	{key: "practical_manual_practicals", current: kvstore.NamespaceEntries, convert: convertLegacyPracticals},
	{key: "practical_manual_images", current: kvstore.NamespaceImages, convert: convertLegacyImages},
	{key: "practical_manual_draft", current: kvstore.NamespaceDraft, convert: convertLegacyDraft},
	{key: "labcraft_user", current: kvstore.NamespaceSession, convert: convertLegacyUser},
}

type legacyManual struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	UserID      string `json:"user_id"`
}

type legacyPractical struct {
	ID           string   `json:"id"`
	ManualID     string   `json:"manual_id"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Aim          string   `json:"aim"`
	Theory       string   `json:"theory"`
	Algorithm    string   `json:"algorithm"`
	Code         string   `json:"code"`
	Language     string   `json:"language"`
	OutputImages []string `json:"output_images"`
	Conclusion   string   `json:"conclusion"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	UserID       string   `json:"user_id"`
}

type legacyImage struct {
	ID        string `json:"id"`
	ManualID  string `json:"manual_id"`
	Data      string `json:"data"`
	CreatedAt string `json:"created_at"`
}

type legacyDraft struct {
	ManualID     string   `json:"manual_id"`
	Title        string   `json:"title"`
	Aim          string   `json:"aim"`
	Theory       string   `json:"theory"`
	Algorithm    string   `json:"algorithm"`
	Code         string   `json:"code"`
	Language     string   `json:"language"`
	OutputImages []string `json:"output_images"`
	Conclusion   string   `json:"conclusion"`
	SavedAt      string   `json:"saved_at"`
}

type legacyUser struct {
	Email string     `json:"email"`
	Role  users.Role `json:"role"`
}

func convertLegacyManuals(raw string) (string, error) {
	var manuals []legacyManual
	if err := json.Unmarshal([]byte(raw), &manuals); err != nil {
		return "", err
	}
	collections := make([]notebook.Collection, 0, len(manuals))
	for _, manual := range manuals {
		collections = append(collections, notebook.Collection{
			ID:          manual.ID,
			Title:       manual.Title,
			Subject:     manual.Subject,
			Description: manual.Description,
			CreatedAt:   parseLegacyTime(manual.CreatedAt),
			UpdatedAt:   parseLegacyTime(manual.UpdatedAt),
			OwnerID:     manual.UserID,
		})
	}
	return encodeLegacy(collections)
}

// convertLegacyPracticals keeps the stored numbers. A missing or
// non-positive number takes the next free ordinal of its collection.
func convertLegacyPracticals(raw string) (string, error) {
	var practicals []legacyPractical
	if err := json.Unmarshal([]byte(raw), &practicals); err != nil {
		return "", err
	}
	used := make(map[string][]int)
	for _, practical := range practicals {
		if practical.Number > 0 {
			used[practical.ManualID] = append(used[practical.ManualID], practical.Number)
		}
	}

	entries := make([]notebook.Entry, 0, len(practicals))
	for _, practical := range practicals {
		ordinal := practical.Number
		if ordinal <= 0 {
			ordinal = notebook.NextOrdinal(used[practical.ManualID])
			used[practical.ManualID] = append(used[practical.ManualID], ordinal)
		}
		entries = append(entries, notebook.Entry{
			ID:           practical.ID,
			CollectionID: practical.ManualID,
			Ordinal:      ordinal,
			Title:        practical.Title,
			Aim:          practical.Aim,
			Theory:       practical.Theory,
			Steps:        practical.Algorithm,
			Code:         practical.Code,
			Language:     notebook.NormalizeLanguage(practical.Language),
			Attachments:  nonNilStrings(practical.OutputImages),
			Conclusion:   practical.Conclusion,
			CreatedAt:    parseLegacyTime(practical.CreatedAt),
			UpdatedAt:    parseLegacyTime(practical.UpdatedAt),
			OwnerID:      practical.UserID,
		})
	}
	return encodeLegacy(entries)
}

func convertLegacyImages(raw string) (string, error) {
	var images []legacyImage
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return "", err
	}
	converted := make([]assets.Asset, 0, len(images))
	for _, image := range images {
		converted = append(converted, assets.Asset{
			ID:           image.ID,
			CollectionID: image.ManualID,
			Data:         image.Data,
			CreatedAt:    parseLegacyTime(image.CreatedAt),
		})
	}
	return encodeLegacy(converted)
}

func convertLegacyDraft(raw string) (string, error) {
	var draft legacyDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return "", err
	}
	return encodeLegacy(drafts.Draft{
		Content: drafts.Content{
			CollectionID: draft.ManualID,
			Title:        draft.Title,
			Aim:          draft.Aim,
			Theory:       draft.Theory,
			Steps:        draft.Algorithm,
			Code:         draft.Code,
			Language:     draft.Language,
			Attachments:  nonNilStrings(draft.OutputImages),
			Conclusion:   draft.Conclusion,
		},
		SavedAt: parseLegacyTime(draft.SavedAt),
	})
}

func convertLegacyUser(raw string) (string, error) {
	var user legacyUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", err
	}
	return encodeLegacy(users.Identity{Email: user.Email, Role: user.Role})
}

// parseLegacyTime accepts the ISO-8601 timestamps written by earlier
// releases; anything else becomes the zero time.
func parseLegacyTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func encodeLegacy(value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

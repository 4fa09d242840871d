package drafts

import "time"

// Content is the in-progress entry form state captured by the autosaver.
type Content struct {
	CollectionID string   `json:"collection_id"`
	Title        string   `json:"title"`
	Aim          string   `json:"aim"`
	Theory       string   `json:"theory"`
	Steps        string   `json:"steps"`
	Code         string   `json:"code"`
	Language     string   `json:"language"`
	Attachments  []string `json:"attachments"`
	Conclusion   string   `json:"conclusion"`
}

// Draft is the single persisted scratch snapshot.
type Draft struct {
	Content
	SavedAt time.Time `json:"saved_at"`
}

// MatchesCollection reports whether the draft may be loaded into a session
// working on collectionID. An empty collectionID accepts any draft.
func (d Draft) MatchesCollection(collectionID string) bool {
	return collectionID == "" || d.CollectionID == collectionID
}

// State is the autosaver's position in its Idle -> Pending -> Saved cycle.
type State int

const (
	// StateIdle means nothing is pending and no draft was saved this session.
	StateIdle State = iota
	// StatePending means a debounce timer is armed.
	StatePending
	// StateSaved means the latest content has been persisted.
	StateSaved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSaved:
		return "saved"
	default:
		return "idle"
	}
}

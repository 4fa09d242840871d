package notebook

import (
	"context"

	"go.uber.org/zap"
)

// NextOrdinal returns the ordinal a new entry receives given the ordinals
// already used in its collection.
func NextOrdinal(existing []int) int {
	highest := 0
	for _, ordinal := range existing {
		if ordinal > highest {
			highest = ordinal
		}
	}
	return highest + 1
}

// ReorderEntries renumbers the collection's entries so that the entry at
// 1-based position i of orderedIDs gets ordinal i. Identifiers that are not
// part of the collection are skipped but still occupy their position. Each
// entry is persisted on its own; a failure leaves earlier renumbering in place.
func (s *Service) ReorderEntries(ctx context.Context, collectionID string, orderedIDs []string) ([]Entry, error) {
	current, err := s.ListEntriesByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Entry, len(current))
	for _, entry := range current {
		byID[entry.ID] = entry
	}

	reordered := make([]Entry, 0, len(orderedIDs))
	for index, entryID := range orderedIDs {
		entry, ok := byID[entryID]
		if !ok {
			s.loggerOrDefault().Debug("reorder skipped unknown entry",
				zap.String("collection_id", collectionID),
				zap.String("entry_id", entryID))
			continue
		}
		entry.Ordinal = index + 1
		saved, err := s.SaveEntry(ctx, entry)
		if err != nil {
			s.logError(opReorderEntries, reasonStoreFailed, err,
				zap.String("collection_id", collectionID),
				zap.String("entry_id", entryID))
			return reordered, err
		}
		reordered = append(reordered, saved)
	}
	return reordered, nil
}

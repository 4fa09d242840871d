package notebook

import (
	"context"
	"strings"
)

// SearchCollections filters collections whose title, subject or description
// contains query, ignoring case. A blank query matches everything.
func (s *Service) SearchCollections(ctx context.Context, query string) ([]Collection, error) {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return collections, nil
	}
	matches := make([]Collection, 0, len(collections))
	for _, collection := range collections {
		if containsFold(needle, collection.Title, collection.Subject, collection.Description) {
			matches = append(matches, collection)
		}
	}
	return matches, nil
}

// SearchEntries filters a collection's entries by title, aim or theory.
func (s *Service) SearchEntries(ctx context.Context, collectionID, query string) ([]Entry, error) {
	entries, err := s.ListEntriesByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return entries, nil
	}
	matches := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if containsFold(needle, entry.Title, entry.Aim, entry.Theory) {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func containsFold(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

package notebook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
)

type sequentialIDProvider struct {
	next int
}

func (p *sequentialIDProvider) NewID(prefix string) (string, error) {
	p.next++
	return fmt.Sprintf("%s-%d", prefix, p.next), nil
}

type steppingClock struct {
	current time.Time
}

func (c *steppingClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestService(t *testing.T) (*Service, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	substrate, err := kvstore.NewSubstrate(store, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected substrate error: %v", err)
	}
	clock := &steppingClock{current: time.Unix(1700000000, 0).UTC()}
	service, err := NewService(ServiceConfig{
		Substrate:    substrate,
		Clock:        clock.Now,
		IDProvider:   &sequentialIDProvider{},
		Logger:       zap.NewNop(),
		DefaultOwner: "current_user",
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service, store
}

func mustCreateCollection(t *testing.T, service *Service, title, subject string) Collection {
	t.Helper()
	collection, err := service.CreateCollection(context.Background(), "", CollectionInput{Title: title, Subject: subject})
	if err != nil {
		t.Fatalf("unexpected create collection error: %v", err)
	}
	return collection
}

func mustCreateEntry(t *testing.T, service *Service, collectionID, title string) Entry {
	t.Helper()
	entry, err := service.CreateEntry(context.Background(), "", EntryInput{
		CollectionID: collectionID,
		Title:        title,
		Code:         "print('" + title + "')",
		Language:     "python",
	})
	if err != nil {
		t.Fatalf("unexpected create entry error: %v", err)
	}
	return entry
}

func stringPointer(value string) *string {
	return &value
}

package notebook

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
)

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store offline")
}

func (brokenStore) Save(context.Context, string, string) error {
	return errors.New("store offline")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("store offline")
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceConfig{IDProvider: &sequentialIDProvider{}}); err == nil {
		t.Fatalf("expected missing substrate error")
	}
	substrate, _ := kvstore.NewSubstrate(kvstore.NewMemoryStore(), nil)
	_, err := NewService(ServiceConfig{Substrate: substrate})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if serviceErr.Code() != "notebook.service.new.missing_id_provider" {
		t.Fatalf("unexpected code %s", serviceErr.Code())
	}
}

func TestCreateCollectionAssignsIdentity(t *testing.T) {
	service, _ := newTestService(t)

	first := mustCreateCollection(t, service, "  Physics Lab ", " Physics ")
	second := mustCreateCollection(t, service, "Chemistry Lab", "Chemistry")

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected unique non-empty ids, got %q and %q", first.ID, second.ID)
	}
	if !first.CreatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at on create, got %v and %v", first.CreatedAt, first.UpdatedAt)
	}
	if first.Title != "Physics Lab" || first.Subject != "Physics" {
		t.Fatalf("expected trimmed fields, got %q / %q", first.Title, first.Subject)
	}
	if first.OwnerID != "current_user" {
		t.Fatalf("expected default owner, got %q", first.OwnerID)
	}
}

func TestCreateCollectionUsesExplicitOwner(t *testing.T) {
	service, _ := newTestService(t)
	collection, err := service.CreateCollection(context.Background(), "aryan@labcraft.com", CollectionInput{Title: "Optics", Subject: "Physics"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if collection.OwnerID != "aryan@labcraft.com" {
		t.Fatalf("unexpected owner %q", collection.OwnerID)
	}
}

func TestCreateCollectionRejectsMissingFields(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.CreateCollection(context.Background(), "", CollectionInput{Title: "   ", Subject: "Physics"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "notebook.create_collection.invalid_input" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSaveCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	collection := mustCreateCollection(t, service, "Physics Lab", "Physics")

	for attempt := 0; attempt < 3; attempt++ {
		if _, err := service.SaveCollection(ctx, collection); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	listed, err := service.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(listed))
	}
	stored := listed[0]
	if stored.ID != collection.ID || stored.Title != collection.Title || stored.Subject != collection.Subject ||
		!stored.CreatedAt.Equal(collection.CreatedAt) || stored.OwnerID != collection.OwnerID {
		t.Fatalf("stored record differs from saved one: %#v vs %#v", stored, collection)
	}
	if !stored.UpdatedAt.After(collection.UpdatedAt) {
		t.Fatalf("expected overwrite to refresh updated_at")
	}
}

func TestListCollectionsKeepsInsertionOrderAndCounts(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	physics := mustCreateCollection(t, service, "Physics Lab", "Physics")
	chemistry := mustCreateCollection(t, service, "Chemistry Lab", "Chemistry")
	mustCreateEntry(t, service, chemistry.ID, "Titration")
	mustCreateEntry(t, service, chemistry.ID, "Distillation")

	listed, err := service.ListCollections(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != physics.ID || listed[1].ID != chemistry.ID {
		t.Fatalf("unexpected order %#v", listed)
	}
	if listed[0].EntryCount != 0 || listed[1].EntryCount != 2 {
		t.Fatalf("unexpected counts %d / %d", listed[0].EntryCount, listed[1].EntryCount)
	}
}

func TestUpdateCollection(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	collection := mustCreateCollection(t, service, "Physics Lab", "Physics")

	updated, err := service.UpdateCollection(ctx, collection.ID, CollectionPatch{Description: stringPointer("Semester one")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Description != "Semester one" || updated.Title != "Physics Lab" {
		t.Fatalf("unexpected update result %#v", updated)
	}
	if !updated.UpdatedAt.After(collection.UpdatedAt) {
		t.Fatalf("expected updated_at to move forward")
	}

	if _, err := service.UpdateCollection(ctx, "missing", CollectionPatch{}); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.UpdateCollection(ctx, collection.ID, CollectionPatch{Subject: stringPointer("")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDeleteCollectionCascades(t *testing.T) {
	for entryCount := 0; entryCount <= 3; entryCount++ {
		t.Run(fmt.Sprintf("entries-%d", entryCount), func(t *testing.T) {
			ctx := context.Background()
			service, _ := newTestService(t)
			doomed := mustCreateCollection(t, service, "Physics Lab", "Physics")
			kept := mustCreateCollection(t, service, "Chemistry Lab", "Chemistry")
			for index := 0; index < entryCount; index++ {
				mustCreateEntry(t, service, doomed.ID, fmt.Sprintf("Entry %d", index))
			}
			survivor := mustCreateEntry(t, service, kept.ID, "Titration")

			if err := service.DeleteCollection(ctx, doomed.ID); err != nil {
				t.Fatalf("delete failed: %v", err)
			}

			entries, err := service.ListEntries(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			for _, entry := range entries {
				if entry.CollectionID == doomed.ID {
					t.Fatalf("entry %s still references the deleted collection", entry.ID)
				}
			}
			if len(entries) != 1 || entries[0].ID != survivor.ID {
				t.Fatalf("expected only the unrelated entry to survive, got %#v", entries)
			}
			if _, found, _ := service.GetCollection(ctx, doomed.ID); found {
				t.Fatalf("expected collection to be gone")
			}
		})
	}
}

func TestCollectionLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	physics := mustCreateCollection(t, service, "Physics", "Physics")
	pendulum := mustCreateEntry(t, service, physics.ID, "Pendulum")
	optics := mustCreateEntry(t, service, physics.ID, "Optics")
	if pendulum.Ordinal != 1 || optics.Ordinal != 2 {
		t.Fatalf("unexpected ordinals %d / %d", pendulum.Ordinal, optics.Ordinal)
	}

	if err := service.DeleteCollection(ctx, physics.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entries, err := service.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestCreateEntryRequiresExistingCollection(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.CreateEntry(context.Background(), "", EntryInput{CollectionID: "ghost", Title: "Pendulum", Code: "x"})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected collection not found, got %v", err)
	}
}

func TestCreateEntryValidatesAndNormalizes(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	collection := mustCreateCollection(t, service, "Physics Lab", "Physics")

	if _, err := service.CreateEntry(ctx, "", EntryInput{CollectionID: collection.ID, Title: "Pendulum"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing code to be rejected, got %v", err)
	}

	entry, err := service.CreateEntry(ctx, "", EntryInput{
		CollectionID: collection.ID,
		Title:        "Pendulum",
		Code:         "10 PRINT",
		Language:     "BASIC",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if entry.Language != LanguagePlainText {
		t.Fatalf("expected unknown language to normalize, got %q", entry.Language)
	}
	if entry.Attachments == nil {
		t.Fatalf("expected attachments to be an empty list")
	}
	if !entry.CreatedAt.Equal(entry.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at on create")
	}
}

func TestUpdateEntryKeepsOrdinal(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	collection := mustCreateCollection(t, service, "Physics Lab", "Physics")
	mustCreateEntry(t, service, collection.ID, "Pendulum")
	optics := mustCreateEntry(t, service, collection.ID, "Optics")

	attachments := []string{"img-1"}
	updated, err := service.UpdateEntry(ctx, optics.ID, EntryPatch{
		Conclusion:  stringPointer("Light bends."),
		Attachments: &attachments,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Ordinal != 2 || updated.Conclusion != "Light bends." || len(updated.Attachments) != 1 {
		t.Fatalf("unexpected update result %#v", updated)
	}

	if _, err := service.UpdateEntry(ctx, "missing", EntryPatch{}); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected entry not found, got %v", err)
	}
}

func TestDeleteEntryRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	collection := mustCreateCollection(t, service, "Physics Lab", "Physics")
	pendulum := mustCreateEntry(t, service, collection.ID, "Pendulum")
	optics := mustCreateEntry(t, service, collection.ID, "Optics")

	if err := service.DeleteEntry(ctx, pendulum.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	entries, err := service.ListEntriesByCollection(ctx, collection.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != optics.ID {
		t.Fatalf("unexpected entries after delete %#v", entries)
	}
	if _, found, _ := service.GetCollection(ctx, collection.ID); !found {
		t.Fatalf("deleting an entry must not touch its collection")
	}
}

func TestMalformedNamespaceReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)
	if err := store.Save(ctx, kvstore.NamespaceCollections.String(), "not-json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	listed, err := service.ListCollections(ctx)
	if err != nil {
		t.Fatalf("malformed data must not raise, got %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty list, got %d", len(listed))
	}

	mustCreateCollection(t, service, "Physics Lab", "Physics")
	listed, _ = service.ListCollections(ctx)
	if len(listed) != 1 {
		t.Fatalf("expected corrupt data to be replaced on next write, got %d", len(listed))
	}
}

func TestStoreFailuresCarryCodes(t *testing.T) {
	substrate, _ := kvstore.NewSubstrate(brokenStore{}, zap.NewNop())
	service, err := NewService(ServiceConfig{Substrate: substrate, IDProvider: &sequentialIDProvider{}})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = service.ListCollections(context.Background())
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if serviceErr.Code() != "notebook.list_collections.load_failed" {
		t.Fatalf("unexpected code %s", serviceErr.Code())
	}
}

func TestZeroServiceReportsMissingSubstrate(t *testing.T) {
	service := &Service{}
	_, err := service.ListEntries(context.Background())
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "notebook.list_entries.missing_substrate" {
		t.Fatalf("unexpected error %v", err)
	}
}

package notebook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	errMissingSubstrate  = errors.New("substrate is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingRecordID   = errors.New("record identifier is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "notebook.service.new"
	opListCollections  = "notebook.list_collections"
	opGetCollection    = "notebook.get_collection"
	opSaveCollection   = "notebook.save_collection"
	opCreateCollection = "notebook.create_collection"
	opUpdateCollection = "notebook.update_collection"
	opDeleteCollection = "notebook.delete_collection"
	opListEntries      = "notebook.list_entries"
	opGetEntry         = "notebook.get_entry"
	opSaveEntry        = "notebook.save_entry"
	opCreateEntry      = "notebook.create_entry"
	opUpdateEntry      = "notebook.update_entry"
	opDeleteEntry      = "notebook.delete_entry"
	opReorderEntries   = "notebook.reorder_entries"

	reasonMissingSubstrate   = "missing_substrate"
	reasonMissingIDProvider  = "missing_id_provider"
	reasonLoadFailed         = "load_failed"
	reasonStoreFailed        = "store_failed"
	reasonInvalidInput       = "invalid_input"
	reasonNotFound           = "not_found"
	reasonCollectionNotFound = "collection_not_found"
	reasonIDGenerationFailed = "id_generation_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the relational store.
type ServiceConfig struct {
	Substrate    *kvstore.Substrate
	Clock        func() time.Time
	IDProvider   IDProvider
	Logger       *zap.Logger
	DefaultOwner string
}

// Service keeps collections and entries consistent on top of the substrate.
type Service struct {
	substrate    *kvstore.Substrate
	clock        func() time.Time
	idProvider   IDProvider
	logger       *zap.Logger
	validate     *validator.Validate
	defaultOwner string
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Substrate == nil {
		return nil, newServiceError(opServiceNew, reasonMissingSubstrate, errMissingSubstrate)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		substrate:    cfg.Substrate,
		clock:        clock,
		idProvider:   cfg.IDProvider,
		logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		defaultOwner: strings.TrimSpace(cfg.DefaultOwner),
	}, nil
}

// ListCollections returns every collection in insertion order with its
// derived entry count filled in.
func (s *Service) ListCollections(ctx context.Context) ([]Collection, error) {
	collections, err := s.loadCollections(ctx, opListCollections)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(ctx, opListCollections)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(collections))
	for _, entry := range entries {
		counts[entry.CollectionID]++
	}
	for index := range collections {
		collections[index].EntryCount = counts[collections[index].ID]
	}
	return collections, nil
}

// GetCollection looks up a collection by id.
func (s *Service) GetCollection(ctx context.Context, collectionID string) (Collection, bool, error) {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return Collection{}, false, err
	}
	index := slices.IndexFunc(collections, func(candidate Collection) bool {
		return candidate.ID == collectionID
	})
	if index < 0 {
		return Collection{}, false, nil
	}
	return collections[index], true, nil
}

// SaveCollection inserts collection when its id is unknown, otherwise it
// replaces the stored record and stamps UpdatedAt.
func (s *Service) SaveCollection(ctx context.Context, collection Collection) (Collection, error) {
	if strings.TrimSpace(collection.ID) == "" {
		s.logError(opSaveCollection, reasonInvalidInput, errMissingRecordID)
		return Collection{}, newServiceError(opSaveCollection, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, errMissingRecordID))
	}
	collections, err := s.loadCollections(ctx, opSaveCollection)
	if err != nil {
		return Collection{}, err
	}

	collection.EntryCount = 0
	index := slices.IndexFunc(collections, func(candidate Collection) bool {
		return candidate.ID == collection.ID
	})
	if index >= 0 {
		collection.UpdatedAt = s.clock().UTC()
		collections[index] = collection
	} else {
		collections = append(collections, collection)
	}

	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceCollections, collections); err != nil {
		s.logError(opSaveCollection, reasonStoreFailed, err, zap.String("collection_id", collection.ID))
		return Collection{}, newServiceError(opSaveCollection, reasonStoreFailed, err)
	}
	return collection, nil
}

// CreateCollection validates input and stores a new collection owned by
// owner, or by the configured default owner when owner is blank.
func (s *Service) CreateCollection(ctx context.Context, owner string, input CollectionInput) (Collection, error) {
	normalized := input.normalized()
	if err := s.validate.Struct(normalized); err != nil {
		s.logError(opCreateCollection, reasonInvalidInput, err)
		return Collection{}, newServiceError(opCreateCollection, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	collectionID, err := s.newID(opCreateCollection, "collection")
	if err != nil {
		return Collection{}, err
	}

	now := s.clock().UTC()
	collection := Collection{
		ID:          collectionID,
		Title:       normalized.Title,
		Subject:     normalized.Subject,
		Description: normalized.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     s.ownerOrDefault(owner),
	}
	return s.SaveCollection(ctx, collection)
}

// UpdateCollection applies patch to an existing collection.
func (s *Service) UpdateCollection(ctx context.Context, collectionID string, patch CollectionPatch) (Collection, error) {
	existing, found, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return Collection{}, err
	}
	if !found {
		s.logError(opUpdateCollection, reasonNotFound, ErrCollectionNotFound, zap.String("collection_id", collectionID))
		return Collection{}, newServiceError(opUpdateCollection, reasonNotFound, ErrCollectionNotFound)
	}

	input := CollectionInput{Title: existing.Title, Subject: existing.Subject, Description: existing.Description}
	if patch.Title != nil {
		input.Title = *patch.Title
	}
	if patch.Subject != nil {
		input.Subject = *patch.Subject
	}
	if patch.Description != nil {
		input.Description = *patch.Description
	}
	input = input.normalized()
	if err := s.validate.Struct(input); err != nil {
		s.logError(opUpdateCollection, reasonInvalidInput, err, zap.String("collection_id", collectionID))
		return Collection{}, newServiceError(opUpdateCollection, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	existing.Title = input.Title
	existing.Subject = input.Subject
	existing.Description = input.Description
	saved, err := s.SaveCollection(ctx, existing)
	if err != nil {
		return Collection{}, err
	}
	saved.EntryCount = existing.EntryCount
	return saved, nil
}

// DeleteCollection removes the collection and then every entry that
// references it. The two writes are not atomic. Assets uploaded for the
// collection are left in place.
func (s *Service) DeleteCollection(ctx context.Context, collectionID string) error {
	collections, err := s.loadCollections(ctx, opDeleteCollection)
	if err != nil {
		return err
	}
	remaining := slices.DeleteFunc(collections, func(candidate Collection) bool {
		return candidate.ID == collectionID
	})
	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceCollections, remaining); err != nil {
		s.logError(opDeleteCollection, reasonStoreFailed, err, zap.String("collection_id", collectionID))
		return newServiceError(opDeleteCollection, reasonStoreFailed, err)
	}

	entries, err := s.loadEntries(ctx, opDeleteCollection)
	if err != nil {
		return err
	}
	before := len(entries)
	survivors := slices.DeleteFunc(entries, func(candidate Entry) bool {
		return candidate.CollectionID == collectionID
	})
	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceEntries, survivors); err != nil {
		s.logError(opDeleteCollection, reasonStoreFailed, err, zap.String("collection_id", collectionID))
		return newServiceError(opDeleteCollection, reasonStoreFailed, err)
	}

	s.loggerOrDefault().Info("collection deleted",
		zap.String("collection_id", collectionID),
		zap.Int("entries_removed", before-len(survivors)))
	return nil
}

// ListEntries returns every entry in insertion order.
func (s *Service) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.loadEntries(ctx, opListEntries)
}

// ListEntriesByCollection returns the collection's entries sorted by ordinal.
func (s *Service) ListEntriesByCollection(ctx context.Context, collectionID string) ([]Entry, error) {
	entries, err := s.loadEntries(ctx, opListEntries)
	if err != nil {
		return nil, err
	}
	filtered := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.CollectionID == collectionID {
			filtered = append(filtered, entry)
		}
	}
	slices.SortStableFunc(filtered, func(left, right Entry) int {
		return left.Ordinal - right.Ordinal
	})
	return filtered, nil
}

// GetEntry looks up an entry by id.
func (s *Service) GetEntry(ctx context.Context, entryID string) (Entry, bool, error) {
	entries, err := s.loadEntries(ctx, opGetEntry)
	if err != nil {
		return Entry{}, false, err
	}
	index := slices.IndexFunc(entries, func(candidate Entry) bool {
		return candidate.ID == entryID
	})
	if index < 0 {
		return Entry{}, false, nil
	}
	return entries[index], true, nil
}

// SaveEntry inserts entry when its id is unknown, otherwise it replaces the
// stored record and stamps UpdatedAt.
func (s *Service) SaveEntry(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.ID) == "" {
		s.logError(opSaveEntry, reasonInvalidInput, errMissingRecordID)
		return Entry{}, newServiceError(opSaveEntry, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, errMissingRecordID))
	}
	entries, err := s.loadEntries(ctx, opSaveEntry)
	if err != nil {
		return Entry{}, err
	}
	if entry.Attachments == nil {
		entry.Attachments = []string{}
	}

	index := slices.IndexFunc(entries, func(candidate Entry) bool {
		return candidate.ID == entry.ID
	})
	if index >= 0 {
		entry.UpdatedAt = s.clock().UTC()
		entries[index] = entry
	} else {
		entries = append(entries, entry)
	}

	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceEntries, entries); err != nil {
		s.logError(opSaveEntry, reasonStoreFailed, err, zap.String("entry_id", entry.ID))
		return Entry{}, newServiceError(opSaveEntry, reasonStoreFailed, err)
	}
	return entry, nil
}

// CreateEntry validates input, checks that its collection exists and stores a
// new entry numbered after the collection's highest ordinal.
func (s *Service) CreateEntry(ctx context.Context, owner string, input EntryInput) (Entry, error) {
	normalized := input.normalized()
	if err := s.validate.Struct(normalized); err != nil {
		s.logError(opCreateEntry, reasonInvalidInput, err)
		return Entry{}, newServiceError(opCreateEntry, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	collections, err := s.loadCollections(ctx, opCreateEntry)
	if err != nil {
		return Entry{}, err
	}
	if !slices.ContainsFunc(collections, func(candidate Collection) bool {
		return candidate.ID == normalized.CollectionID
	}) {
		s.logError(opCreateEntry, reasonCollectionNotFound, ErrCollectionNotFound,
			zap.String("collection_id", normalized.CollectionID))
		return Entry{}, newServiceError(opCreateEntry, reasonCollectionNotFound, ErrCollectionNotFound)
	}

	siblings, err := s.ListEntriesByCollection(ctx, normalized.CollectionID)
	if err != nil {
		return Entry{}, err
	}
	ordinals := make([]int, 0, len(siblings))
	for _, sibling := range siblings {
		ordinals = append(ordinals, sibling.Ordinal)
	}

	entryID, err := s.newID(opCreateEntry, "entry")
	if err != nil {
		return Entry{}, err
	}

	now := s.clock().UTC()
	entry := Entry{
		ID:           entryID,
		CollectionID: normalized.CollectionID,
		Ordinal:      NextOrdinal(ordinals),
		Title:        normalized.Title,
		Aim:          normalized.Aim,
		Theory:       normalized.Theory,
		Steps:        normalized.Steps,
		Code:         normalized.Code,
		Language:     normalized.Language,
		Attachments:  normalized.Attachments,
		Conclusion:   normalized.Conclusion,
		CreatedAt:    now,
		UpdatedAt:    now,
		OwnerID:      s.ownerOrDefault(owner),
	}
	return s.SaveEntry(ctx, entry)
}

// UpdateEntry applies patch to an existing entry. The ordinal and collection
// are never changed by an update.
func (s *Service) UpdateEntry(ctx context.Context, entryID string, patch EntryPatch) (Entry, error) {
	existing, found, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		s.logError(opUpdateEntry, reasonNotFound, ErrEntryNotFound, zap.String("entry_id", entryID))
		return Entry{}, newServiceError(opUpdateEntry, reasonNotFound, ErrEntryNotFound)
	}

	input := EntryInput{
		CollectionID: existing.CollectionID,
		Title:        existing.Title,
		Aim:          existing.Aim,
		Theory:       existing.Theory,
		Steps:        existing.Steps,
		Code:         existing.Code,
		Language:     existing.Language,
		Attachments:  existing.Attachments,
		Conclusion:   existing.Conclusion,
	}
	applyEntryPatch(&input, patch)
	input = input.normalized()
	if err := s.validate.Struct(input); err != nil {
		s.logError(opUpdateEntry, reasonInvalidInput, err, zap.String("entry_id", entryID))
		return Entry{}, newServiceError(opUpdateEntry, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	existing.Title = input.Title
	existing.Aim = input.Aim
	existing.Theory = input.Theory
	existing.Steps = input.Steps
	existing.Code = input.Code
	existing.Language = input.Language
	existing.Attachments = input.Attachments
	existing.Conclusion = input.Conclusion
	return s.SaveEntry(ctx, existing)
}

func applyEntryPatch(input *EntryInput, patch EntryPatch) {
	if patch.Title != nil {
		input.Title = *patch.Title
	}
	if patch.Aim != nil {
		input.Aim = *patch.Aim
	}
	if patch.Theory != nil {
		input.Theory = *patch.Theory
	}
	if patch.Steps != nil {
		input.Steps = *patch.Steps
	}
	if patch.Code != nil {
		input.Code = *patch.Code
	}
	if patch.Language != nil {
		input.Language = *patch.Language
	}
	if patch.Attachments != nil {
		input.Attachments = *patch.Attachments
	}
	if patch.Conclusion != nil {
		input.Conclusion = *patch.Conclusion
	}
}

// DeleteEntry removes a single entry. Deleting an unknown id is a no-op.
func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	entries, err := s.loadEntries(ctx, opDeleteEntry)
	if err != nil {
		return err
	}
	remaining := slices.DeleteFunc(entries, func(candidate Entry) bool {
		return candidate.ID == entryID
	})
	if err := kvstore.Set(ctx, s.substrate, kvstore.NamespaceEntries, remaining); err != nil {
		s.logError(opDeleteEntry, reasonStoreFailed, err, zap.String("entry_id", entryID))
		return newServiceError(opDeleteEntry, reasonStoreFailed, err)
	}
	return nil
}

func (s *Service) loadCollections(ctx context.Context, operation string) ([]Collection, error) {
	if s.substrate == nil {
		s.logError(operation, reasonMissingSubstrate, errMissingSubstrate)
		return nil, newServiceError(operation, reasonMissingSubstrate, errMissingSubstrate)
	}
	collections, err := kvstore.Get[Collection](ctx, s.substrate, kvstore.NamespaceCollections)
	if err != nil {
		s.logError(operation, reasonLoadFailed, err)
		return nil, newServiceError(operation, reasonLoadFailed, err)
	}
	return collections, nil
}

func (s *Service) loadEntries(ctx context.Context, operation string) ([]Entry, error) {
	if s.substrate == nil {
		s.logError(operation, reasonMissingSubstrate, errMissingSubstrate)
		return nil, newServiceError(operation, reasonMissingSubstrate, errMissingSubstrate)
	}
	entries, err := kvstore.Get[Entry](ctx, s.substrate, kvstore.NamespaceEntries)
	if err != nil {
		s.logError(operation, reasonLoadFailed, err)
		return nil, newServiceError(operation, reasonLoadFailed, err)
	}
	return entries, nil
}

func (s *Service) newID(operation, prefix string) (string, error) {
	if s.idProvider == nil {
		s.logError(operation, reasonMissingIDProvider, errMissingIDProvider)
		return "", newServiceError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}
	identifier, err := s.idProvider.NewID(prefix)
	if err != nil {
		s.logError(operation, reasonIDGenerationFailed, err)
		return "", newServiceError(operation, reasonIDGenerationFailed, err)
	}
	return identifier, nil
}

func (s *Service) ownerOrDefault(owner string) string {
	if trimmed := strings.TrimSpace(owner); trimmed != "" {
		return trimmed
	}
	return s.defaultOwner
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notebook service error", attrs...)
}

package notebook

import "github.com/google/uuid"

// IDProvider issues opaque record identifiers.
type IDProvider interface {
	NewID(prefix string) (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues prefixed UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID(prefix string) (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return prefix + "_" + value.String(), nil
}

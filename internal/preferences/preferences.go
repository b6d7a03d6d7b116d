package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

// Preference keys.
const (
	KeyCredential = "CEREBRAS_API_KEY"
	KeyModel      = "selected_model"
)

// legacyModelPrefix was stored in front of model ids by older clients.
const legacyModelPrefix = "cerebras/"

// Preferences reads and writes the client settings on top of a Store.
type Preferences struct {
	store        Store
	defaultModel string
}

// New creates Preferences backed by store. An empty defaultModel means
// domain.DefaultModel.
func New(store Store, defaultModel string) *Preferences {
	if defaultModel == "" {
		defaultModel = domain.DefaultModel
	}
	return &Preferences{store: store, defaultModel: defaultModel}
}

// Credential returns the stored credential. It returns ErrNotFound when none
// was saved.
func (p *Preferences) Credential(ctx context.Context) (string, error) {
	credential, err := p.store.Get(ctx, KeyCredential)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(credential) == "" {
		return "", ErrNotFound
	}
	return credential, nil
}

// SetCredential saves the credential.
func (p *Preferences) SetCredential(ctx context.Context, credential string) error {
	return p.store.Set(ctx, KeyCredential, strings.TrimSpace(credential))
}

// Model returns the selected model, or the default when none was saved.
// A legacy "cerebras/" prefix is stripped and the migrated value saved back.
func (p *Preferences) Model(ctx context.Context) (string, error) {
	model, err := p.store.Get(ctx, KeyModel)
	if errors.Is(err, ErrNotFound) {
		return p.defaultModel, nil
	}
	if err != nil {
		return "", err
	}

	if migrated, ok := strings.CutPrefix(model, legacyModelPrefix); ok {
		observability.FromContext(ctx).Info("migrating stored model",
			observability.String("from", model),
			observability.String("to", migrated),
		)
		if err := p.store.Set(ctx, KeyModel, migrated); err != nil {
			return "", fmt.Errorf("saving migrated model: %w", err)
		}
		model = migrated
	}

	if model == "" {
		return p.defaultModel, nil
	}
	return model, nil
}

// SetModel saves the selected model.
func (p *Preferences) SetModel(ctx context.Context, model string) error {
	model = strings.TrimPrefix(strings.TrimSpace(model), legacyModelPrefix)
	return p.store.Set(ctx, KeyModel, model)
}

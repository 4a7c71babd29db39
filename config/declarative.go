package config

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/internal/registry"
	"github.com/nti-labs/webhooks/pkg/logger"
)

// DeclaredSubscription is one statically configured subscription, the YAML
// analogue of the original's ZCML <subscribeIn> directive (SPEC_FULL §6,
// grounded on original_source/src/nti/webhooks/generations.py's
// SubscriptionDescriptor).
type DeclaredSubscription struct {
	SiteID       string `yaml:"site_id"`
	ForType      string `yaml:"for_type"`
	When         string `yaml:"when"`
	To           string `yaml:"to"`
	OwnerID      string `yaml:"owner_id"`
	PermissionID string `yaml:"permission_id"`
	DialectID    string `yaml:"dialect_id"`
}

// DeclarativeFile is the top-level shape of the YAML file named by
// Config.DeclarativePath.
type DeclarativeFile struct {
	Subscriptions []DeclaredSubscription `yaml:"subscriptions"`
}

// generationState is the previously-applied declared set, persisted next to
// the declarative file so a later run can compute kept/added/removed the way
// PersistentWebhookSchemaManager.evolve diffs stored vs. finalized state.
type generationState struct {
	Generation    int                     `yaml:"generation"`
	Subscriptions []DeclaredSubscription `yaml:"subscriptions"`
}

func sortedCopy(subs []DeclaredSubscription) []DeclaredSubscription {
	out := make([]DeclaredSubscription, len(subs))
	copy(out, subs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SiteID != out[j].SiteID {
			return out[i].SiteID < out[j].SiteID
		}
		if out[i].ForType != out[j].ForType {
			return out[i].ForType < out[j].ForType
		}
		if out[i].When != out[j].When {
			return out[i].When < out[j].When
		}
		return out[i].To < out[j].To
	})
	return out
}

func equalSets(a, b []DeclaredSubscription) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LoadDeclarativeFile reads and parses a YAML file of declared subscriptions.
// A missing path is not an error: it means no declarative subscriptions are
// configured.
func LoadDeclarativeFile(path string) (*DeclarativeFile, error) {
	if path == "" {
		return &DeclarativeFile{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &DeclarativeFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read declarative subscriptions file: %w", err)
	}
	var file DeclarativeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse declarative subscriptions file: %w", err)
	}
	return &file, nil
}

func loadGenerationState(statePath string) (*generationState, error) {
	data, err := os.ReadFile(statePath)
	if os.IsNotExist(err) {
		return &generationState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read declarative state file: %w", err)
	}
	var state generationState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse declarative state file: %w", err)
	}
	return &state, nil
}

func saveGenerationState(statePath string, state *generationState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal declarative state: %w", err)
	}
	if err := os.WriteFile(statePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write declarative state file: %w", err)
	}
	return nil
}

// ApplyDeclarativeSubscriptions reconciles the registry against file's
// declared subscriptions, comparing them to the previously applied set
// recorded in statePath: new entries are created, entries no longer declared
// are removed through SubscriptionManager.RemoveSubscription (deactivated and
// then deleted from the store, not kept as inactive subscriptions), and
// untouched entries are left alone. This mirrors
// PersistentWebhookSchemaManager.evolve's kept/add/remove diff, generalized
// from ZODB's database-root state to a YAML sidecar file since this module
// has no persistent object database to store generation state in.
func ApplyDeclarativeSubscriptions(ctx context.Context, reg *registry.Registry, file *DeclarativeFile, statePath string, auth domain.Authentication, log logger.Logger) error {
	desired := sortedCopy(file.Subscriptions)

	prior, err := loadGenerationState(statePath)
	if err != nil {
		return err
	}
	stored := sortedCopy(prior.Subscriptions)

	if equalSets(desired, stored) {
		return nil
	}

	priorSet := make(map[DeclaredSubscription]bool, len(stored))
	for _, d := range stored {
		priorSet[d] = true
	}
	desiredSet := make(map[DeclaredSubscription]bool, len(desired))
	for _, d := range desired {
		desiredSet[d] = true
	}

	for _, d := range desired {
		if priorSet[d] {
			continue
		}
		mgr := reg.AddSite(d.SiteID, "")
		if _, err := mgr.CreateSubscription(ctx, d.To, d.ForType, d.When, d.OwnerID, d.PermissionID, d.DialectID, auth); err != nil {
			return fmt.Errorf("failed to install declared subscription for site %s: %w", d.SiteID, err)
		}
		log.WithField("site_id", d.SiteID).Info("installed declared subscription")
	}

	for _, d := range stored {
		if desiredSet[d] {
			continue
		}
		mgr := reg.ManagerFor(d.SiteID)
		if mgr == nil {
			continue
		}
		for _, sub := range mgr.ActiveSubscriptions(d.ForType, d.When) {
			if sub.To == d.To && sub.OwnerID == d.OwnerID && sub.DialectID == d.DialectID {
				if err := mgr.RemoveSubscription(ctx, sub); err != nil {
					return fmt.Errorf("failed to remove declared subscription for site %s: %w", d.SiteID, err)
				}
				log.WithField("site_id", d.SiteID).Info("removed subscription no longer declared")
				break
			}
		}
	}

	newGeneration := prior.Generation
	if !equalSets(desired, stored) {
		newGeneration++
	}
	return saveGenerationState(statePath, &generationState{Generation: newGeneration, Subscriptions: desired})
}

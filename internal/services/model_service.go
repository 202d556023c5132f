package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"discussdraft/internal/assets"
	"discussdraft/internal/models"
)

// ModelCatalogService exposes the selectable models shipped in models.json.
type ModelCatalogService interface {
	ListModelGroups() ([]models.LLMModelGroup, error)
	GetModel(modelKey string) (*models.LLMModel, error)
	DefaultModel(provider models.Provider) (*models.LLMModel, error)
	HasModel(provider models.Provider, apiName string) bool
}

type modelCatalogService struct {
	mu            sync.RWMutex
	providerOrder []string
	providerNames map[string]string
	models        map[string]*catalogModel
	order         []string
}

type catalogModel struct {
	Key         string
	ProviderID  string
	Provider    string
	DisplayName string
	APIName     string
	Thinking    *bool
	Default     bool
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
	Thinking    *bool  `json:"thinking,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// NewModelCatalogService loads the embedded catalog.
func NewModelCatalogService() (ModelCatalogService, error) {
	return newModelCatalog(assets.ModelsData)
}

func newModelCatalog(data []byte) (*modelCatalogService, error) {
	var parsed rawModelFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}

	s := &modelCatalogService{
		providerNames: make(map[string]string),
		models:        make(map[string]*catalogModel),
	}
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(provider.DisplayName)
		s.providerNames[providerID] = providerName
		s.providerOrder = append(s.providerOrder, providerID)
		for _, mdl := range provider.Models {
			key := computeModelKey(providerID, mdl)
			if _, dup := s.models[key]; dup {
				return nil, fmt.Errorf("duplicate model %s", key)
			}
			s.models[key] = &catalogModel{
				Key:         key,
				ProviderID:  providerID,
				Provider:    providerName,
				DisplayName: strings.TrimSpace(mdl.DisplayName),
				APIName:     strings.TrimSpace(mdl.APIName),
				Thinking:    mdl.Thinking,
				Default:     mdl.Default,
			}
			s.order = append(s.order, key)
		}
	}
	return s, nil
}

func (s *modelCatalogService) ListModelGroups() ([]models.LLMModelGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		group := models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerName(providerID),
		}
		for _, key := range s.order {
			mdl := s.models[key]
			if mdl.ProviderID != providerID {
				continue
			}
			group.Models = append(group.Models, s.toLLMModel(mdl))
		}
		// Defaults first, then catalog order.
		sort.SliceStable(group.Models, func(i, j int) bool {
			return group.Models[i].Default && !group.Models[j].Default
		})
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *modelCatalogService) GetModel(modelKey string) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, fmt.Errorf("model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog, ok := s.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}
	model := s.toLLMModel(catalog)
	return &model, nil
}

// DefaultModel returns the provider's flagged default, or its first model.
func (s *modelCatalogService) DefaultModel(provider models.Provider) (*models.LLMModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *catalogModel
	for _, key := range s.order {
		mdl := s.models[key]
		if mdl.ProviderID != string(provider) {
			continue
		}
		if mdl.Default {
			model := s.toLLMModel(mdl)
			return &model, nil
		}
		if first == nil {
			first = mdl
		}
	}
	if first == nil {
		return nil, fmt.Errorf("no models configured for %s", provider)
	}
	model := s.toLLMModel(first)
	return &model, nil
}

func (s *modelCatalogService) HasModel(provider models.Provider, apiName string) bool {
	apiName = strings.TrimSpace(apiName)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mdl := range s.models {
		if mdl.ProviderID == string(provider) && mdl.APIName == apiName {
			return true
		}
	}
	return false
}

func (s *modelCatalogService) providerName(providerID string) string {
	if name, ok := s.providerNames[providerID]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return providerID
}

func (s *modelCatalogService) toLLMModel(mdl *catalogModel) models.LLMModel {
	return models.LLMModel{
		Key:          mdl.Key,
		DisplayName:  mdl.DisplayName,
		APIName:      mdl.APIName,
		ProviderID:   mdl.ProviderID,
		ProviderName: mdl.Provider,
		Thinking:     mdl.Thinking,
		Default:      mdl.Default,
	}
}

func computeModelKey(providerID string, mdl rawModel) string {
	parts := []string{strings.TrimSpace(providerID), strings.TrimSpace(mdl.APIName)}
	if mdl.Thinking != nil {
		parts = append(parts, fmt.Sprintf("thinking=%t", *mdl.Thinking))
	}
	return strings.Join(parts, "|")
}

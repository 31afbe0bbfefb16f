package webhooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heraldhq/herald/pkg/urlcheck"
)

// DefaultMaxEndpointsPerGuild caps how many webhook endpoints one guild
// may register
const DefaultMaxEndpointsPerGuild = 20

// Registry errors
var (
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrGuildAtCapacity  = errors.New("guild endpoint limit reached")
)

// Registry is an in-memory EndpointSource with full CRUD. Guild bots with a
// single herald instance use it directly; larger deployments put their own
// store behind the EndpointSource interface instead.
type Registry struct {
	mu          sync.RWMutex
	byGuild     map[string]map[string]*Endpoint
	validator   *urlcheck.Validator
	maxPerGuild int
}

// NewRegistry creates an endpoint registry. Registration URLs are validated
// with the given validator before they are accepted.
func NewRegistry(validator *urlcheck.Validator, maxPerGuild int) *Registry {
	if maxPerGuild <= 0 {
		maxPerGuild = DefaultMaxEndpointsPerGuild
	}
	return &Registry{
		byGuild:     make(map[string]map[string]*Endpoint),
		validator:   validator,
		maxPerGuild: maxPerGuild,
	}
}

// CreateRequest carries the caller-supplied fields of a new endpoint
type CreateRequest struct {
	URL         string      `json:"url"`
	Secret      string      `json:"secret,omitempty"`
	Events      []EventType `json:"events"`
	Description string      `json:"description,omitempty"`
}

func (r *Registry) validateRequest(rawURL string, events []EventType) error {
	if rawURL == "" {
		return fmt.Errorf("endpoint URL is required")
	}
	if len(events) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	for _, t := range events {
		if !t.Known() {
			return fmt.Errorf("unknown event type %q", t)
		}
	}
	if !r.validator.ValidateURL(rawURL) {
		return fmt.Errorf("endpoint URL %s is not allowed", urlcheck.SanitizeURL(rawURL))
	}
	return nil
}

// Create registers a new endpoint for a guild. New endpoints start enabled.
func (r *Registry) Create(ctx context.Context, guildID string, req CreateRequest) (*Endpoint, error) {
	if err := r.validateRequest(req.URL, req.Events); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	guild := r.byGuild[guildID]
	if guild == nil {
		guild = make(map[string]*Endpoint)
		r.byGuild[guildID] = guild
	}
	if len(guild) >= r.maxPerGuild {
		return nil, ErrGuildAtCapacity
	}

	now := time.Now()
	endpoint := &Endpoint{
		ID:          uuid.NewString(),
		URL:         req.URL,
		Secret:      req.Secret,
		Events:      append([]EventType(nil), req.Events...),
		Enabled:     true,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	guild[endpoint.ID] = endpoint

	copied := *endpoint
	return &copied, nil
}

// Get returns one endpoint by ID
func (r *Registry) Get(ctx context.Context, guildID, endpointID string) (*Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.byGuild[guildID][endpointID]
	if !ok {
		return nil, ErrEndpointNotFound
	}
	copied := *endpoint
	return &copied, nil
}

// UpdateRequest carries a partial endpoint update. Nil fields are left
// unchanged; Secret supports clearing via an explicit empty string.
type UpdateRequest struct {
	URL         *string     `json:"url,omitempty"`
	Secret      *string     `json:"secret,omitempty"`
	Events      []EventType `json:"events,omitempty"`
	Enabled     *bool       `json:"enabled,omitempty"`
	Description *string     `json:"description,omitempty"`
}

// Update applies a partial update to an endpoint
func (r *Registry) Update(ctx context.Context, guildID, endpointID string, req UpdateRequest) (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	endpoint, ok := r.byGuild[guildID][endpointID]
	if !ok {
		return nil, ErrEndpointNotFound
	}

	url := endpoint.URL
	if req.URL != nil {
		url = *req.URL
	}
	events := endpoint.Events
	if req.Events != nil {
		events = req.Events
	}
	if err := r.validateRequest(url, events); err != nil {
		return nil, err
	}

	endpoint.URL = url
	endpoint.Events = append([]EventType(nil), events...)
	if req.Secret != nil {
		endpoint.Secret = *req.Secret
	}
	if req.Enabled != nil {
		endpoint.Enabled = *req.Enabled
	}
	if req.Description != nil {
		endpoint.Description = *req.Description
	}
	endpoint.UpdatedAt = time.Now()

	copied := *endpoint
	return &copied, nil
}

// Delete removes an endpoint
func (r *Registry) Delete(ctx context.Context, guildID, endpointID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	guild := r.byGuild[guildID]
	if _, ok := guild[endpointID]; !ok {
		return ErrEndpointNotFound
	}
	delete(guild, endpointID)
	if len(guild) == 0 {
		delete(r.byGuild, guildID)
	}
	return nil
}

// GuildEndpoints implements EndpointSource
func (r *Registry) GuildEndpoints(ctx context.Context, guildID string) ([]Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	guild := r.byGuild[guildID]
	endpoints := make([]Endpoint, 0, len(guild))
	for _, endpoint := range guild {
		endpoints = append(endpoints, *endpoint)
	}
	return endpoints, nil
}

var _ EndpointSource = (*Registry)(nil)

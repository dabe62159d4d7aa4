package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	// RoleViewer may read the vocabulary, the document and previews.
	RoleViewer Role = "viewer"
	// RoleEditor may also fill, apply and export. It implies RoleViewer.
	RoleEditor Role = "editor"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleViewer:
		return RoleViewer, nil
	case RoleEditor:
		return RoleEditor, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type Identity struct {
	Workspace string
	Roles     []Role
}

func (i Identity) HasRole(role Role) bool {
	for _, candidate := range i.Roles {
		if candidate == role || (candidate == RoleEditor && role == RoleViewer) {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses "key:workspace:role|role,..." entries.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:workspace:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		workspace := strings.TrimSpace(parts[1])
		if key == "" || workspace == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/workspace", entry)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate key", entry)
		}
		var roles []Role
		for _, raw := range strings.Split(parts[2], "|") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			role, err := ParseRole(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid static key entry %q: %w", entry, err)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
		validator.keys[key] = Identity{Workspace: workspace, Roles: roles}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}

// Package auth resolves opaque admin credentials into project scope.
//
// A credential is never stored or cached between requests: every request is
// resolved against the configured super-admin secret and the current project
// table, so key rotation takes effect immediately.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/clinarc/ediary/internal/platform/errors"
	"github.com/clinarc/ediary/internal/services/diary/storage"
)

// Scope is the authorization decided for one request.
type Scope struct {
	// SuperAdmin grants every project, including ones created later in the
	// same request.
	SuperAdmin bool
	// ProjectIDs are the projects a tenant admin key unlocked.
	ProjectIDs []int64
}

// Allows reports whether the scope covers the given project. Zero means the
// record predates project separation; those are visible to any admin scope.
func (s Scope) Allows(projectID int64) bool {
	if s.SuperAdmin {
		return true
	}
	if projectID == 0 {
		return len(s.ProjectIDs) > 0
	}
	for _, id := range s.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// Resolver turns raw credentials into scopes.
type Resolver struct {
	projects      storage.ProjectStore
	superAdminKey string
}

// NewResolver builds a resolver over the project store. superAdminKey may be
// empty, in which case no credential grants super-admin scope.
func NewResolver(projects storage.ProjectStore, superAdminKey string) *Resolver {
	return &Resolver{projects: projects, superAdminKey: superAdminKey}
}

// Resolve maps a raw credential to its scope. A missing or unrecognized
// credential yields an unauthorized error; credential values are never part
// of returned errors.
func (r *Resolver) Resolve(ctx context.Context, credential string) (Scope, error) {
	if err := ctx.Err(); err != nil {
		return Scope{}, err
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Scope{}, errors.New(errors.CodeUnauthorized, "missing admin key")
	}

	if r.superAdminKey != "" &&
		subtle.ConstantTimeCompare([]byte(credential), []byte(r.superAdminKey)) == 1 {
		ids, err := r.projects.ListProjectIDs(ctx)
		if err != nil {
			return Scope{}, errors.Wrap(errors.CodeStorageUnavailable, "resolve super-admin scope", err)
		}
		return Scope{SuperAdmin: true, ProjectIDs: ids}, nil
	}

	ids, err := r.projects.ProjectIDsByAdminKey(ctx, credential)
	if err != nil {
		return Scope{}, errors.Wrap(errors.CodeStorageUnavailable, "resolve admin scope", err)
	}
	if len(ids) == 0 {
		return Scope{}, errors.New(errors.CodeUnauthorized, "unrecognized admin key")
	}
	return Scope{ProjectIDs: ids}, nil
}

// RequireProject returns a forbidden error when the scope does not cover the
// project.
func RequireProject(scope Scope, projectID int64) error {
	if scope.Allows(projectID) {
		return nil
	}
	return errors.New(errors.CodeForbidden, "project is outside admin scope")
}

// RequireSuperAdmin returns a forbidden error for tenant-scoped credentials.
func RequireSuperAdmin(scope Scope) error {
	if scope.SuperAdmin {
		return nil
	}
	return errors.New(errors.CodeForbidden, "super-admin key required")
}

// Package guard protects the organisation-management routes.
package guard

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/inventhq/invent/internal/domain"
)

// DefaultLocale is used when a path carries no locale.
const DefaultLocale = "en"

// Guarded routes.
const (
	RouteManagement     = "organisation-management"
	RouteManagementEdit = "organisation-management-edit-id"
	RouteManagementNew  = "organisation-management-new"
	RouteManagementView = "organisation-management-id"
)

var observed = []string{RouteManagement, RouteManagementEdit, RouteManagementNew, RouteManagementView}

// Decision is the outcome of a route check. Redirect is empty when the
// navigation is allowed.
type Decision struct {
	Redirect string
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool { return d.Redirect == "" }

// RouteName strips the locale suffix from a localized route name.
func RouteName(raw string) string {
	name, _, _ := strings.Cut(raw, "___")
	return name
}

// RedirectPath is the localized organisation page with no organisation
// selected.
func RedirectPath(locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	return "/" + locale + "/-"
}

// Decide checks a navigation to route. Routes outside organisation
// management are always allowed. Creating an organisation additionally needs
// a global portfolio owner.
func Decide(route string, user *domain.UserProfile, locale string) Decision {
	route = RouteName(route)
	if !slices.Contains(observed, route) {
		return Decision{}
	}
	if !user.CanManageOrganisations() {
		return Decision{Redirect: RedirectPath(locale)}
	}
	if route == RouteManagementNew && !user.GlobalPortfolioOwner {
		return Decision{Redirect: RedirectPath(locale)}
	}
	return Decision{}
}

// RouteFromPath resolves the route name of a request path of the form
// [/{locale}]/{organisation}/organisation-management[/new|/{id}|/edit/{id}].
// The locale is only read from a path that carries both segments, so a
// two-letter organisation is not mistaken for one. ok is false for paths
// outside organisation management.
func RouteFromPath(path string) (locale, route string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	locale = DefaultLocale

	i := slices.Index(parts, RouteManagement)
	switch i {
	case 1:
	case 2:
		if isLocale(parts[0]) {
			locale = parts[0]
		}
	default:
		return locale, "", false
	}
	switch rest := parts[i+1:]; {
	case len(rest) == 0:
		return locale, RouteManagement, true
	case len(rest) == 1 && rest[0] == "new":
		return locale, RouteManagementNew, true
	case len(rest) == 1:
		return locale, RouteManagementView, true
	case len(rest) == 2 && rest[0] == "edit":
		return locale, RouteManagementEdit, true
	}
	return locale, "", false
}

func isLocale(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// ProfileFunc returns the profile of the user making a request, nil when
// anonymous.
type ProfileFunc func(ctx context.Context) *domain.UserProfile

// Middleware redirects requests to guarded routes the user may not open.
func Middleware(profile ProfileFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale, route, ok := RouteFromPath(r.URL.Path)
			if ok {
				if d := Decide(route, profile(r.Context()), locale); !d.Allowed() {
					http.Redirect(w, r, d.Redirect, http.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

package auth

import "github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"

// Principal is the authenticated caller of one request.
type Principal struct {
	UserID uint
	Role   models.Role
}

// PrincipalFromClaims builds the request principal from validated claims.
func PrincipalFromClaims(c *Claims) *Principal {
	return &Principal{UserID: c.UserID, Role: c.Role}
}

// IsAdmin reports whether the caller may use the back-office workflows.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

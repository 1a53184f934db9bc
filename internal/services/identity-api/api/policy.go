package api

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/domain/role"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

// Authenticator resolves a bearer access token into the caller.
type Authenticator interface {
	ParseAccess(token string) (*domainsession.Principal, error)
}

var publicMethods = map[string]bool{
	MethodRegister:    true,
	MethodLogin:       true,
	MethodGoogleLogin: true,
	MethodRefresh:     true,
	MethodLogout:      true,
}

var requirements = map[string]role.Requirement{
	MethodMe:           {Minimum: role.LevelMember},
	MethodSetPassword:  {Minimum: role.LevelMember},
	MethodListSessions: {Minimum: role.LevelMember},
	MethodLogoutAll:    {Minimum: role.LevelMember},
	MethodBanUser:      {Minimum: role.LevelAdmin},
	MethodUnbanUser:    {Minimum: role.LevelAdmin},
	MethodAssignRole:   {Minimum: role.LevelSuperAdmin},
}

// requirementFor falls back to Member so a method added without a policy
// entry is never public.
func requirementFor(method string) role.Requirement {
	if r, ok := requirements[method]; ok {
		return r
	}
	return role.Requirement{Minimum: role.LevelMember}
}

// Guard authenticates and authorizes a call by method name. It is shared by
// the gRPC interceptor and the HTTP middleware.
type Guard struct {
	auth  Authenticator
	roles *role.Hierarchy
}

func NewGuard(a Authenticator, h *role.Hierarchy) *Guard {
	if h == nil {
		h = role.NewHierarchy()
	}
	return &Guard{auth: a, roles: h}
}

func (g *Guard) Check(method, authorization string) (*domainsession.Principal, error) {
	token := bearerValue(authorization)
	if token == "" {
		return nil, errMissingToken
	}
	p, err := g.auth.ParseAccess(token)
	if err != nil {
		return nil, errBadToken
	}
	if !requirementFor(method).Allows(g.roles, p.Roles) {
		return nil, errForbidden
	}
	return p, nil
}

func bearerValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *domainsession.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromCtx(ctx context.Context) (*domainsession.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domainsession.Principal)
	return p, ok && p != nil
}

func parseUserID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, invalid("user_id", "User id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("user_id", "User id must be a UUID")
	}
	return id, nil
}

package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/services/identity-api/session"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

// Sessions is the use-case surface both transports drive.
type Sessions interface {
	Register(ctx context.Context, email, password string) (*session.Registered, error)
	Login(ctx context.Context, email, password string) (*domainsession.Tokens, error)
	GoogleLogin(ctx context.Context, idToken string) (*session.GoogleLoginResult, error)
	RefreshToken(ctx context.Context, refreshToken, accessToken string) (*domainsession.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	SetPassword(ctx context.Context, userID uuid.UUID, password string) error
	Me(ctx context.Context, userID uuid.UUID) (*session.Profile, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]session.SessionInfo, error)
	LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error)
	BanUser(ctx context.Context, actorID, userID uuid.UUID, until time.Time, reason string) error
	UnbanUser(ctx context.Context, actorID, userID uuid.UUID) error
	AssignRole(ctx context.Context, actorID, userID uuid.UUID, roleName string) error
}

type Opts struct {
	Logger     *zap.Logger
	Cookie     CookieOpts
	RefreshTTL time.Duration
	Roles      *role.Hierarchy
	Now        func() time.Time
}

type Server struct {
	sessions   Sessions
	guard      *Guard
	log        *zap.Logger
	cookie     CookieOpts
	refreshTTL time.Duration
	now        func() time.Time
}

var _ SessionServiceServer = (*Server)(nil)

func NewServer(sessions Sessions, authn Authenticator, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Server{
		sessions:   sessions,
		guard:      NewGuard(authn, o.Roles),
		log:        log.With(zap.String("component", "api")),
		cookie:     o.Cookie.withDefaults(),
		refreshTTL: o.RefreshTTL,
		now:        o.Now,
	}
}

func (s *Server) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	res, err := s.sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.mapErr(ctx, MethodRegister, err)
	}
	return &RegisterResponse{UserID: res.UserID, Email: res.Email}, nil
}

func (s *Server) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	tokens, err := s.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.mapErr(ctx, MethodLogin, err)
	}
	s.setRefreshCookie(ctx, tokens.RefreshToken)
	return toTokenResponse(tokens), nil
}

func (s *Server) GoogleLogin(ctx context.Context, req *GoogleLoginRequest) (*GoogleLoginResponse, error) {
	res, err := s.sessions.GoogleLogin(ctx, req.IDToken)
	if err != nil {
		return nil, s.mapErr(ctx, MethodGoogleLogin, err)
	}
	s.setRefreshCookie(ctx, res.RefreshToken)
	return &GoogleLoginResponse{
		TokenResponse: *toTokenResponse(&res.Tokens),
		UserID:        res.UserID,
		Created:       res.Created,
	}, nil
}

func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	raw := req.RefreshToken
	if raw == "" {
		raw = s.getRefreshFromCtx(ctx)
	}
	access := req.AccessToken
	if access == "" {
		access = bearerValue(mdValue(ctx, "authorization"))
	}

	tokens, err := s.sessions.RefreshToken(ctx, raw, access)
	if err != nil {
		s.clearRefreshCookie(ctx)
		return nil, s.mapErr(ctx, MethodRefresh, err)
	}
	s.setRefreshCookie(ctx, tokens.RefreshToken)
	return toTokenResponse(tokens), nil
}

func (s *Server) Logout(ctx context.Context, req *LogoutRequest) (*Empty, error) {
	raw := req.RefreshToken
	if raw == "" {
		raw = s.getRefreshFromCtx(ctx)
	}
	err := s.sessions.Logout(ctx, raw)
	s.clearRefreshCookie(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodLogout, err)
	}
	return &Empty{}, nil
}

func (s *Server) SetPassword(ctx context.Context, req *SetPasswordRequest) (*Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodSetPassword, err)
	}
	if err := s.sessions.SetPassword(ctx, p.UserID, req.Password); err != nil {
		return nil, s.mapErr(ctx, MethodSetPassword, err)
	}
	return &Empty{}, nil
}

func (s *Server) ListSessions(ctx context.Context, _ *Empty) (*ListSessionsResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodListSessions, err)
	}
	list, err := s.sessions.ListSessions(ctx, p.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodListSessions, err)
	}
	return &ListSessionsResponse{Sessions: list}, nil
}

func (s *Server) LogoutAll(ctx context.Context, _ *Empty) (*LogoutAllResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodLogoutAll, err)
	}
	n, err := s.sessions.LogoutAll(ctx, p.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodLogoutAll, err)
	}
	s.clearRefreshCookie(ctx)
	return &LogoutAllResponse{Revoked: n}, nil
}

func (s *Server) Me(ctx context.Context, _ *Empty) (*MeResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodMe, err)
	}
	prof, err := s.sessions.Me(ctx, p.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodMe, err)
	}
	return toMeResponse(prof), nil
}

func (s *Server) BanUser(ctx context.Context, req *BanUserRequest) (*Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodBanUser, err)
	}
	target, err := parseUserID(req.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodBanUser, err)
	}
	if err := s.sessions.BanUser(ctx, p.UserID, target, req.Until, req.Reason); err != nil {
		return nil, s.mapErr(ctx, MethodBanUser, err)
	}
	return &Empty{}, nil
}

func (s *Server) UnbanUser(ctx context.Context, req *UnbanUserRequest) (*Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodUnbanUser, err)
	}
	target, err := parseUserID(req.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodUnbanUser, err)
	}
	if err := s.sessions.UnbanUser(ctx, p.UserID, target); err != nil {
		return nil, s.mapErr(ctx, MethodUnbanUser, err)
	}
	return &Empty{}, nil
}

func (s *Server) AssignRole(ctx context.Context, req *AssignRoleRequest) (*Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, s.mapErr(ctx, MethodAssignRole, err)
	}
	target, err := parseUserID(req.UserID)
	if err != nil {
		return nil, s.mapErr(ctx, MethodAssignRole, err)
	}
	if err := s.sessions.AssignRole(ctx, p.UserID, target, req.Role); err != nil {
		return nil, s.mapErr(ctx, MethodAssignRole, err)
	}
	return &Empty{}, nil
}

func principal(ctx context.Context) (*domainsession.Principal, error) {
	p, ok := PrincipalFromCtx(ctx)
	if !ok {
		return nil, errMissingToken
	}
	return p, nil
}

func toTokenResponse(t *domainsession.Tokens) *TokenResponse {
	return &TokenResponse{
		AccessToken:     t.AccessToken,
		RefreshToken:    t.RefreshToken,
		AccessExpiresAt: t.AccessExpiresAt,
	}
}

func toMeResponse(p *session.Profile) *MeResponse {
	return &MeResponse{
		ID:             p.User.ID,
		Email:          p.User.Email,
		EmailConfirmed: p.User.EmailConfirmed,
		Roles:          p.Roles,
		BannedUntil:    p.User.BannedUntil,
		CreatedAt:      p.User.CreatedAt,
	}
}

func (s *Server) setRefreshCookie(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	c := s.cookie.refresh(raw, s.refreshTTL, s.now())
	_ = grpc.SetHeader(ctx, metadata.Pairs("Set-Cookie", c.String()))
}

func (s *Server) clearRefreshCookie(ctx context.Context) {
	_ = grpc.SetHeader(ctx, metadata.Pairs("Set-Cookie", s.cookie.cleared().String()))
}

func (s *Server) getRefreshFromCtx(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("cookie") {
		if raw := parseCookie(v, s.cookie.Name); raw != "" {
			return raw
		}
	}
	if vals := md.Get("x-refresh-token"); len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return ""
}

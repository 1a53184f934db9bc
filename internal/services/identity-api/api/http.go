package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NordCoder/Warden/internal/obs"
)

const (
	maxBody            = 1 << 20
	opKey              = "warden.op"
	problemContentType = "application/problem+json"
)

// Handler exposes the session operations as HTTP/JSON under /v1.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.CustomRecovery(s.recovered), limitBody, s.problems())

	r.NoRoute(func(c *gin.Context) {
		c.Header("Content-Type", problemContentType)
		c.JSON(http.StatusNotFound, problem{Title: "Not Found", Status: http.StatusNotFound})
	})
	r.NoMethod(func(c *gin.Context) {
		c.Header("Content-Type", problemContentType)
		c.JSON(http.StatusMethodNotAllowed, problem{Title: "Method Not Allowed", Status: http.StatusMethodNotAllowed})
	})

	v1 := r.Group("/v1")

	authn := v1.Group("/auth")
	authn.POST("/register", public(MethodRegister), s.httpRegister)
	authn.POST("/login", public(MethodLogin), s.httpLogin)
	authn.POST("/google", public(MethodGoogleLogin), s.httpGoogle)
	authn.POST("/refresh", public(MethodRefresh), s.httpRefresh)
	authn.POST("/logout", public(MethodLogout), s.httpLogout)

	me := v1.Group("/me")
	me.GET("", s.protected(MethodMe), s.httpMe)
	me.POST("/password", s.protected(MethodSetPassword), s.httpSetPassword)
	me.GET("/sessions", s.protected(MethodListSessions), s.httpListSessions)
	me.POST("/logout-all", s.protected(MethodLogoutAll), s.httpLogoutAll)

	admin := v1.Group("/admin/users/:id")
	admin.POST("/ban", s.protected(MethodBanUser), s.httpBan)
	admin.POST("/unban", s.protected(MethodUnbanUser), s.httpUnban)
	admin.POST("/roles", s.protected(MethodAssignRole), s.httpAssignRole)

	return obs.HTTPHandler(r, "identity-api.http")
}

func public(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(opKey, op)
		c.Next()
	}
}

// protected runs the same Guard as the gRPC interceptor and hands the
// principal to the handler through the request context.
func (s *Server) protected(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(opKey, method)
		p, err := s.guard.Check(method, c.GetHeader("Authorization"))
		if err != nil {
			fail(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	}
	c.Next()
}

// problems renders the last error a handler attached, unless it already
// wrote a response.
func (s *Server) problems() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		s.renderProblem(c, c.Errors.Last().Err)
	}
}

func (s *Server) recovered(c *gin.Context, rec any) {
	s.renderProblem(c, fmt.Errorf("panic: %v", rec))
	c.Abort()
}

func (s *Server) renderProblem(c *gin.Context, err error) {
	p := problemFor(c.Request.Context(), s.log, c.GetString(opKey), err)
	if p.Status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="warden"`)
	}
	c.Header("Content-Type", problemContentType)
	c.JSON(p.Status, p)
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return malformed(err)
	}
	return nil
}

// bindOptional accepts an empty body, for endpoints that can read the
// token from a cookie instead.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return malformed(err)
	}
	return nil
}

func malformed(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return invalid("body", "Request body is too large")
	}
	return invalid("body", "Request body must be valid JSON")
}

func (s *Server) refreshFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(s.cookie.Name); err == nil && v != "" {
		return v
	}
	return c.GetHeader("X-Refresh-Token")
}

func (s *Server) httpRegister(c *gin.Context) {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := s.sessions.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisterResponse{UserID: res.UserID, Email: res.Email})
}

func (s *Server) httpLogin(c *gin.Context) {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	tokens, err := s.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	http.SetCookie(c.Writer, s.cookie.refresh(tokens.RefreshToken, s.refreshTTL, s.now()))
	c.JSON(http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) httpGoogle(c *gin.Context) {
	var req GoogleLoginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	res, err := s.sessions.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		fail(c, err)
		return
	}
	http.SetCookie(c.Writer, s.cookie.refresh(res.RefreshToken, s.refreshTTL, s.now()))
	c.JSON(http.StatusOK, GoogleLoginResponse{
		TokenResponse: *toTokenResponse(&res.Tokens),
		UserID:        res.UserID,
		Created:       res.Created,
	})
}

func (s *Server) httpRefresh(c *gin.Context) {
	var req RefreshRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = s.refreshFromRequest(c)
	}
	if req.AccessToken == "" {
		req.AccessToken = bearerValue(c.GetHeader("Authorization"))
	}
	tokens, err := s.sessions.RefreshToken(c.Request.Context(), req.RefreshToken, req.AccessToken)
	if err != nil {
		http.SetCookie(c.Writer, s.cookie.cleared())
		fail(c, err)
		return
	}
	http.SetCookie(c.Writer, s.cookie.refresh(tokens.RefreshToken, s.refreshTTL, s.now()))
	c.JSON(http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) httpLogout(c *gin.Context) {
	var req LogoutRequest
	if err := bindOptional(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = s.refreshFromRequest(c)
	}
	http.SetCookie(c.Writer, s.cookie.cleared())
	if err := s.sessions.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) httpMe(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	prof, err := s.sessions.Me(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMeResponse(prof))
}

func (s *Server) httpSetPassword(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var req SetPasswordRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := s.sessions.SetPassword(c.Request.Context(), p.UserID, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) httpListSessions(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	list, err := s.sessions.ListSessions(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListSessionsResponse{Sessions: list})
}

func (s *Server) httpLogoutAll(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	n, err := s.sessions.LogoutAll(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	http.SetCookie(c.Writer, s.cookie.cleared())
	c.JSON(http.StatusOK, LogoutAllResponse{Revoked: n})
}

func (s *Server) httpBan(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var req BanUserRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	target, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.sessions.BanUser(c.Request.Context(), p.UserID, target, req.Until, req.Reason); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) httpUnban(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	target, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.sessions.UnbanUser(c.Request.Context(), p.UserID, target); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) httpAssignRole(c *gin.Context) {
	p, err := principal(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var req AssignRoleRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	target, err := parseUserID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.sessions.AssignRole(c.Request.Context(), p.UserID, target, req.Role); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

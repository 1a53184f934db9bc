package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "warden.v1.SessionService"

const (
	MethodRegister     = "Register"
	MethodLogin        = "Login"
	MethodGoogleLogin  = "GoogleLogin"
	MethodRefresh      = "Refresh"
	MethodLogout       = "Logout"
	MethodSetPassword  = "SetPassword"
	MethodListSessions = "ListSessions"
	MethodLogoutAll    = "LogoutAll"
	MethodMe           = "Me"
	MethodBanUser      = "BanUser"
	MethodUnbanUser    = "UnbanUser"
	MethodAssignRole   = "AssignRole"
)

func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

type SessionServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	GoogleLogin(context.Context, *GoogleLoginRequest) (*GoogleLoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*Empty, error)
	SetPassword(context.Context, *SetPasswordRequest) (*Empty, error)
	ListSessions(context.Context, *Empty) (*ListSessionsResponse, error)
	LogoutAll(context.Context, *Empty) (*LogoutAllResponse, error)
	Me(context.Context, *Empty) (*MeResponse, error)
	BanUser(context.Context, *BanUserRequest) (*Empty, error)
	UnbanUser(context.Context, *UnbanUserRequest) (*Empty, error)
	AssignRole(context.Context, *AssignRoleRequest) (*Empty, error)
}

func unary[Req, Resp any](method string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SessionServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, SessionServiceServer.Register),
		unary(MethodLogin, SessionServiceServer.Login),
		unary(MethodGoogleLogin, SessionServiceServer.GoogleLogin),
		unary(MethodRefresh, SessionServiceServer.Refresh),
		unary(MethodLogout, SessionServiceServer.Logout),
		unary(MethodSetPassword, SessionServiceServer.SetPassword),
		unary(MethodListSessions, SessionServiceServer.ListSessions),
		unary(MethodLogoutAll, SessionServiceServer.LogoutAll),
		unary(MethodMe, SessionServiceServer.Me),
		unary(MethodBanUser, SessionServiceServer.BanUser),
		unary(MethodUnbanUser, SessionServiceServer.UnbanUser),
		unary(MethodAssignRole, SessionServiceServer.AssignRole),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

package api

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls SessionService over an existing connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c, MethodRegister, in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, MethodLogin, in, opts)
}

func (c *Client) GoogleLogin(ctx context.Context, in *GoogleLoginRequest, opts ...grpc.CallOption) (*GoogleLoginResponse, error) {
	return invoke[GoogleLoginResponse](ctx, c, MethodGoogleLogin, in, opts)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, MethodRefresh, in, opts)
}

func (c *Client) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodLogout, in, opts)
}

func (c *Client) SetPassword(ctx context.Context, in *SetPasswordRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodSetPassword, in, opts)
}

func (c *Client) ListSessions(ctx context.Context, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c, MethodListSessions, &Empty{}, opts)
}

func (c *Client) LogoutAll(ctx context.Context, opts ...grpc.CallOption) (*LogoutAllResponse, error) {
	return invoke[LogoutAllResponse](ctx, c, MethodLogoutAll, &Empty{}, opts)
}

func (c *Client) Me(ctx context.Context, opts ...grpc.CallOption) (*MeResponse, error) {
	return invoke[MeResponse](ctx, c, MethodMe, &Empty{}, opts)
}

func (c *Client) BanUser(ctx context.Context, in *BanUserRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodBanUser, in, opts)
}

func (c *Client) UnbanUser(ctx context.Context, in *UnbanUserRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodUnbanUser, in, opts)
}

func (c *Client) AssignRole(ctx context.Context, in *AssignRoleRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodAssignRole, in, opts)
}

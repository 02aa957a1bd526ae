package flows

import "context"

// Service binds the flow functions to the dependencies the Client wires at build time.
type Service struct {
	deps Deps
}

func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized is false for the zero Service.
func (s Service) Initialized() bool {
	return s.deps.Dispatch.AccessToken != nil
}

// Dispatch sends req as a first attempt.
func (s Service) Dispatch(ctx context.Context, req Request) DispatchResult {
	return RunDispatch(ctx, req, 0, s.deps.Dispatch)
}

func (s Service) Exchange(ctx context.Context, refreshToken string) ExchangeResult {
	return RunRefreshExchange(ctx, refreshToken, s.deps.Exchange)
}

func (s Service) Login(ctx context.Context, req LoginRequest) LoginResult {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}

// Package gateway is the wizard's only path to the backend. Each call is one
// labeled request over IPC, correlated with its response by request ID.
//
// A Gateway allows one outstanding request at a time. A second call made
// while one is in flight fails immediately with ErrInFlight; it is never
// queued. Calls are not retried and carry no timeout of their own.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/logging"
)

// ErrInFlight is returned when a request is already outstanding.
var ErrInFlight = errors.New("gateway: a request is already in flight")

// Transport sends one typed request and decodes its result.
// *ipc.Client satisfies it.
type Transport interface {
	Call(ctx context.Context, reqType ipc.RequestType, payload, result interface{}) error
}

// Gateway issues backend requests.
type Gateway struct {
	transport Transport
	logger    *logging.Logger
	inFlight  atomic.Bool
}

// New returns a gateway over transport.
func New(transport Transport, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Gateway{transport: transport, logger: logger}
}

// NewIPC returns a gateway over an IPC client for address. The client
// deadline is disabled so calls wait as long as the backend needs.
func NewIPC(address string, logger *logging.Logger) *Gateway {
	client := ipc.NewClientWithAddress(address)
	client.SetTimeout(0)
	return New(client, logger)
}

// InFlight reports whether a request is outstanding.
func (g *Gateway) InFlight() bool {
	return g.inFlight.Load()
}

// Invoke sends request with payload and decodes the answer into result.
// The returned error is a transport failure; backend refusals arrive in result.
func (g *Gateway) Invoke(ctx context.Context, request ipc.RequestType, payload, result interface{}) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		g.logger.Debug().Str("request", string(request)).Msg("Rejected concurrent gateway request")
		return ErrInFlight
	}
	defer g.inFlight.Store(false)

	g.logger.Debug().Str("request", string(request)).Msg("Gateway request")

	if err := g.transport.Call(ctx, request, payload, result); err != nil {
		return fmt.Errorf("%s: %w", request, err)
	}
	return nil
}

// CheckDependency asks the backend to make sure the runtime dependency is
// installed.
func (g *Gateway) CheckDependency(ctx context.Context) (*ipc.Result, error) {
	var result ipc.Result
	if err := g.Invoke(ctx, ipc.ReqCheckDependency, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login verifies Storj credentials.
func (g *Gateway) Login(ctx context.Context, creds ipc.Credentials) (*ipc.LoginResult, error) {
	var result ipc.LoginResult
	if err := g.Invoke(ctx, ipc.ReqLogin, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a Storj account. On success the result carries the
// generated encryption key.
func (g *Gateway) Register(ctx context.Context, reg ipc.Registration) (*ipc.RegisterResult, error) {
	var result ipc.RegisterResult
	if err := g.Invoke(ctx, ipc.ReqRegister, reg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RequestWallet asks the backend for a Sia wallet.
func (g *Gateway) RequestWallet(ctx context.Context) (*ipc.WalletResult, error) {
	var result ipc.WalletResult
	if err := g.Invoke(ctx, ipc.ReqRequestWallet, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopSyncApps stops sync apps started during the install.
func (g *Gateway) StopSyncApps(ctx context.Context) (*ipc.Result, error) {
	var result ipc.Result
	if err := g.Invoke(ctx, ipc.ReqStopSyncApps, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

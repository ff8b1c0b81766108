package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/goobox/sync-installer/internal/logging"
)

// requestReadTimeout bounds how long a client may take to send its request.
// Handling the request is not bounded.
const requestReadTimeout = 30 * time.Second

// ServiceHandler carries out backend requests on behalf of the wizard.
// Business failures are reported in the returned result; an error means the
// request could not be carried out.
type ServiceHandler interface {
	CheckDependency(ctx context.Context) (*Result, error)
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, reg Registration) (*RegisterResult, error)
	RequestWallet(ctx context.Context) (*WalletResult, error)
	StopSyncApps(ctx context.Context) (*Result, error)

	// GetStatus returns the current daemon status.
	GetStatus() *StatusData

	// Shutdown asks the daemon to exit after the response is sent.
	Shutdown() error
}

// Server handles IPC requests from the wizard.
type Server struct {
	handler  ServiceHandler
	logger   *logging.Logger
	address  string
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new IPC server on the default address.
func NewServer(handler ServiceHandler, logger *logging.Logger) *Server {
	return NewServerWithAddress(handler, logger, DefaultAddress())
}

// NewServerWithAddress creates a new IPC server on a custom socket path or
// pipe name.
func NewServerWithAddress(handler ServiceHandler, logger *logging.Logger, address string) *Server {
	if address == "" {
		address = DefaultAddress()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler: handler,
		logger:  logger,
		address: address,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Address returns the endpoint the server listens on.
func (s *Server) Address() string {
	return s.address
}

// Start begins listening for IPC connections.
func (s *Server) Start() error {
	listener, err := listen(s.address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info().Str("address", s.address).Msg("IPC server started")

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the IPC server. In-flight requests see their
// context cancelled.
func (s *Server) Stop() {
	s.logger.Debug().Msg("Stopping IPC server")
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()
	cleanup(s.address)
	s.logger.Info().Msg("IPC server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("Failed to accept IPC connection")
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	callerPID, authErr := authorizePeer(conn)

	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	reader := bufio.NewReader(conn)

	data, err := reader.ReadBytes('\n')
	if err != nil {
		if err != io.EOF {
			s.logger.Warn().Err(err).Msg("Failed to read IPC request")
		}
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := DecodeRequest(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to decode IPC request")
		s.sendResponse(conn, NewErrorResponse(nil, "invalid request format"))
		return
	}

	s.logger.Debug().
		Str("id", req.ID).
		Str("type", string(req.Type)).
		Int("caller_pid", callerPID).
		Msg("Received IPC request")

	if authErr != nil {
		s.logger.Warn().Err(authErr).Int("caller_pid", callerPID).Str("type", string(req.Type)).Msg("Rejected IPC request")
		s.sendResponse(conn, NewErrorResponse(req, authErr.Error()))
		return
	}

	s.sendResponse(conn, s.handleRequest(req))

	if req.Type == ReqShutdown {
		go s.handler.Shutdown()
	}
}

// handleRequest dispatches a request to the handler and wraps its answer.
func (s *Server) handleRequest(req *Request) *Response {
	ctx := s.ctx

	var (
		data interface{}
		err  error
	)

	switch req.Type {
	case ReqCheckDependency:
		data, err = s.handler.CheckDependency(ctx)

	case ReqLogin:
		var creds Credentials
		if err := req.DecodePayload(&creds); err != nil {
			return NewErrorResponse(req, fmt.Sprintf("invalid login payload: %v", err))
		}
		data, err = s.handler.Login(ctx, creds)

	case ReqRegister:
		var reg Registration
		if err := req.DecodePayload(&reg); err != nil {
			return NewErrorResponse(req, fmt.Sprintf("invalid register payload: %v", err))
		}
		data, err = s.handler.Register(ctx, reg)

	case ReqRequestWallet:
		data, err = s.handler.RequestWallet(ctx)

	case ReqStopSyncApps:
		data, err = s.handler.StopSyncApps(ctx)

	case ReqStatus:
		data = s.handler.GetStatus()

	case ReqShutdown:
		// Shutdown runs after the response is written.

	default:
		return NewErrorResponse(req, fmt.Sprintf("unknown request type: %s", req.Type))
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("type", string(req.Type)).Msg("IPC request failed")
		return NewErrorResponse(req, err.Error())
	}

	resp, err := NewOKResponse(req, data)
	if err != nil {
		return NewErrorResponse(req, err.Error())
	}
	return resp
}

func (s *Server) sendResponse(conn net.Conn, resp *Response) {
	data, err := resp.Encode()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode IPC response")
		return
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send IPC response")
	}
}

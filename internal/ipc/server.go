package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"jobtrail/internal/api"
	"jobtrail/internal/daemon"
	"jobtrail/internal/logging"
)

// ServiceName prefixes every RPC method.
const ServiceName = "Jobtrail"

const scanTimeout = 5 * time.Minute

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client asks the daemon process to exit; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun jobtrail shutdown"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) Status(_ Empty, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) AuthStart(_ Empty, resp *AuthStartResponse) error {
	out, err := s.daemon.Service().StartAuth(s.ctx)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) AuthComplete(req AuthCompleteRequest, resp *AuthCompleteResponse) error {
	out, err := s.daemon.Service().CompleteAuth(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Start(_ Empty, resp *MonitorResponse) error {
	out, err := s.daemon.Service().StartMonitor(s.ctx)
	if err != nil {
		return err
	}
	*resp = out
	s.logger.Info("monitor started via IPC", logging.String(logging.FieldEventType, "monitor_start_requested"))
	return nil
}

func (s *service) Stop(_ Empty, resp *MonitorResponse) error {
	*resp = s.daemon.Service().StopMonitor(s.ctx)
	s.logger.Info("monitor stopped via IPC", logging.String(logging.FieldEventType, "monitor_stop_requested"))
	return nil
}

func (s *service) Scan(_ Empty, resp *ScanResponse) error {
	ctx, cancel := context.WithTimeout(s.ctx, scanTimeout)
	defer cancel()
	out, err := s.daemon.Service().Scan(ctx)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) Applications(_ Empty, resp *ApplicationsResponse) error {
	*resp = s.daemon.Service().Applications(s.ctx)
	return nil
}

func (s *service) Application(req ApplicationRequest, resp *Application) error {
	out, err := s.daemon.Service().Application(s.ctx, req.ID)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) AddApplication(req AddApplicationRequest, resp *Application) error {
	out, err := s.daemon.Service().AddApplication(s.ctx, req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) SetStage(req SetStageRequest, resp *Application) error {
	out, err := s.daemon.Service().SetStage(s.ctx, req.ID, api.SetStageRequest{Stage: req.Stage})
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *service) DeleteApplication(req ApplicationRequest, resp *DeleteResponse) error {
	if err := s.daemon.Service().DeleteApplication(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) TestNotification(_ Empty, resp *TestNotificationResponse) error {
	if err := s.daemon.Service().TestNotification(s.ctx); err != nil {
		resp.Message = "failed to send notification"
		return err
	}
	resp.Sent = true
	resp.Message = "test notification published"
	return nil
}

func (s *service) Shutdown(_ Empty, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this daemon")
	}
	s.logger.Info("daemon shutdown requested via IPC", logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	resp.Stopping = true
	// Reply before the listener closes.
	go func() {
		time.Sleep(50 * time.Millisecond)
		s.shutdown()
	}()
	return nil
}

package devmgr

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/ferro-labs/hailo-devmgr/internal/framing"
	"github.com/ferro-labs/hailo-devmgr/internal/logging"
	"github.com/ferro-labs/hailo-devmgr/internal/metrics"
)

func (m *Manager) listen() (*net.UnixListener, error) {
	addr, err := net.ResolveUnixAddr("unix", m.cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}

	if gid, ok := m.resolveSocketGroup(); ok {
		_ = os.Chown(m.cfg.SocketPath, -1, gid)
	}
	if err := os.Chmod(m.cfg.SocketPath, m.cfg.SocketMode); err != nil {
		m.logger.Warn("failed to set socket mode", "error", err)
	}

	m.logger.Info("device manager ready for connections", "socket", m.cfg.SocketPath)
	return listener, nil
}

// resolveSocketGroup looks up the configured socket group name, falling
// back to the owning group of /dev/hailo0 the way the original daemon did
// when no explicit group was configured.
func (m *Manager) resolveSocketGroup() (int, bool) {
	if m.cfg.SocketGroup != "" {
		grp, err := user.LookupGroup(m.cfg.SocketGroup)
		if err != nil {
			return 0, false
		}
		gid, err := strconv.Atoi(grp.Gid)
		if err != nil {
			return 0, false
		}
		return gid, true
	}

	var stat syscall.Stat_t
	if err := syscall.Stat("/dev/hailo0", &stat); err != nil {
		return 0, false
	}
	return int(stat.Gid), true
}

func (m *Manager) acceptLoop(ctx context.Context, listener *net.UnixListener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				m.logger.Warn("accept error", "error", err)
				continue
			}
		}
		metrics.ConnectionsTotal.Inc()
		go m.handleConn(ctx, conn)
	}
}

func (m *Manager) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	clientLogger := m.logger.With("conn_id", logging.NewRequestID()[:8])

	for {
		var req Request
		err := framing.ReadMessage(conn, m.cfg.MaxMessageBytes, &req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			clientLogger.Warn("protocol error", "error", err)
			_ = framing.WriteMessage(conn, m.cfg.MaxMessageBytes, Response{"error": err.Error()})
			return
		}

		resp := m.processRequest(ctx, req)

		if err := framing.WriteMessage(conn, m.cfg.MaxMessageBytes, resp); err != nil {
			// Client disconnected mid-write or the frame exceeded the
			// configured max: the worker has already finished the
			// dispatch, so there is nothing left to roll back. Log and
			// drop, as spec.md prescribes for this path.
			clientLogger.Debug("failed to write response", "error", err)
			return
		}
	}
}

// processRequest enqueues req, waits for the worker's response, and stamps
// request_id onto the response when the caller supplied one.
func (m *Manager) processRequest(ctx context.Context, req Request) Response {
	done, err := m.queue.Enqueue(ctx, req)
	if err != nil {
		resp := errorResponse("%s", err.Error())
		if req.RequestID != "" {
			resp["request_id"] = req.RequestID
		}
		return resp
	}

	resp := <-done
	if req.RequestID != "" {
		resp["request_id"] = req.RequestID
	}
	return resp
}

package main

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/tomb.v2"

	"skabillium/memo/cmd/db"
	"skabillium/memo/cmd/resp"
)

var logger = loggo.GetLogger("memo.server")

const ErrNoAuth = errors.ConstError("NOAUTH Authentication required.")

type Server struct {
	tomb    tomb.Tomb
	options *ServerOptions
	clock   clock.Clock
	db      *db.Database
	wal     *WAL
	metrics *Collector
	runID   string
	started time.Time

	ln          net.Listener
	metricsSrv  *http.Server
	metricsAddr net.Addr

	// writeMu orders mutating commands so the write ahead log sees them
	// in the order they were applied.
	writeMu sync.Mutex

	connMu   sync.Mutex
	conns    map[net.Conn]struct{}
	handlers sync.WaitGroup
}

// session is the state of one client connection.
type session struct {
	authenticated bool
	name          string
}

func NewServer(options *ServerOptions, clk clock.Clock) *Server {
	if clk == nil {
		clk = clock.WallClock
	}
	database := db.NewDatabaseWithCapacity(clk, options.NodeCapacity)
	return &Server{
		options: options,
		clock:   clk,
		db:      database,
		metrics: NewMetricsCollector(database.Stats),
		runID:   uuid.NewString(),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start replays the write ahead log, if enabled, and starts serving.
func (s *Server) Start() error {
	s.started = s.clock.Now()

	if s.options.WalEnabled {
		replay := &session{authenticated: true}
		n, err := replayWAL(s.options.WalPath, func(cmd *Command) error {
			if err, ok := s.apply(replay, cmd).(error); ok {
				return err
			}
			return nil
		})
		if err != nil {
			return errors.Annotate(err, "replaying write ahead log")
		}
		logger.Infof("replayed %d commands from %q", n, s.options.WalPath)

		if s.wal, err = OpenWAL(s.options.WalPath); err != nil {
			return errors.Trace(err)
		}
	}

	ln, err := net.Listen("tcp", s.options.Addr())
	if err != nil {
		return errors.Annotatef(err, "listening on %s", s.options.Addr())
	}
	s.ln = ln

	if s.options.MetricsAddr != "" {
		if err := s.listenMetrics(); err != nil {
			ln.Close()
			return errors.Trace(err)
		}
	}

	logger.Infof("memo server %s started on %s", MemoVersion, ln.Addr())

	s.tomb.Go(s.acceptLoop)
	s.tomb.Go(s.closeOnDying)
	if s.options.AutoCleanupEnabled {
		s.tomb.Go(s.cleanupLoop)
	}
	if s.wal != nil {
		quiesced := s.quiesced()
		s.tomb.Go(func() error {
			return s.wal.loop(quiesced)
		})
	}
	return nil
}

// Addr returns the address clients connect to.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// MetricsAddr returns the address metrics are served on, or nil.
func (s *Server) MetricsAddr() net.Addr {
	return s.metricsAddr
}

func (s *Server) Kill() {
	s.tomb.Kill(nil)
}

func (s *Server) Wait() error {
	return s.tomb.Wait()
}

// Stop shuts the server down and waits for every connection to finish.
func (s *Server) Stop() error {
	s.Kill()
	return s.Wait()
}

func (s *Server) listenMetrics() error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(s.metrics); err != nil {
		return errors.Annotate(err, "registering metrics")
	}

	ln, err := net.Listen("tcp", s.options.MetricsAddr)
	if err != nil {
		return errors.Annotatef(err, "listening on %s", s.options.MetricsAddr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.metricsSrv = &http.Server{Handler: mux}
	s.metricsAddr = ln.Addr()

	s.tomb.Go(func() error {
		if err := s.metricsSrv.Serve(ln); err != http.ErrServerClosed {
			return errors.Annotate(err, "serving metrics")
		}
		return nil
	})
	logger.Infof("serving metrics on %s", ln.Addr())
	return nil
}

// closeOnDying unblocks the accept loop and every connection once the
// server is killed.
func (s *Server) closeOnDying() error {
	<-s.tomb.Dying()
	s.ln.Close()
	if s.metricsSrv != nil {
		s.metricsSrv.Close()
	}

	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	return nil
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.tomb.Dying():
				return tomb.ErrDying
			default:
			}
			logger.Errorf("accept error: %v", err)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return tomb.ErrDying
		}
		s.tomb.Go(func() error {
			s.handleConnection(conn)
			return nil
		})
	}
}

// track records an open connection and counts its handler. It reports
// false once the server is dying, since closeOnDying may already have run.
func (s *Server) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	select {
	case <-s.tomb.Dying():
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

// quiesced returns a channel that is closed once the server is dying and
// every connection handler has returned. Nothing can reach the write ahead
// log after that.
func (s *Server) quiesced() <-chan struct{} {
	ch := make(chan struct{})
	s.tomb.Go(func() error {
		<-s.tomb.Dying()
		// Once track has seen Dying no handler can be added.
		s.connMu.Lock()
		s.connMu.Unlock()
		s.handlers.Wait()
		close(ch)
		return nil
	})
	return ch
}

func (s *Server) cleanupLoop() error {
	for {
		select {
		case <-s.tomb.Dying():
			return tomb.ErrDying
		case <-s.clock.After(s.options.CleanupInterval):
			s.db.Cleanup(s.options.CleanupLimit)
		}
	}
}

// handleConnection serves requests until the client hangs up. Replies to
// pipelined requests are flushed together.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.handlers.Done()
	defer s.untrack(conn)
	defer conn.Close()

	s.metrics.connectionCount.Inc()
	defer s.metrics.connectionCount.Dec()

	logger.Debugf("client connected from %s", conn.RemoteAddr())
	state := &session{authenticated: !s.options.AuthEnabled}
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		v, err := resp.Read(r)
		if err == io.EOF {
			logger.Debugf("client %s disconnected", conn.RemoteAddr())
			return
		}
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) {
				w.WriteString(resp.SerializeError(resp.ErrProtocol))
				w.Flush()
			}
			logger.Debugf("closing connection from %s: %v", conn.RemoteAddr(), err)
			return
		}

		var reply any
		args, err := requestArgs(v)
		switch {
		case err != nil:
			reply = err
		case args == nil:
			continue
		default:
			reply = s.handle(state, args)
		}

		out, err := resp.Serialize(reply)
		if err != nil {
			logger.Errorf("cannot serialize reply: %v", err)
			out = resp.SerializeError(errors.New("ERR internal error"))
		}
		if _, err := w.WriteString(out); err != nil {
			return
		}
		if r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

// requestArgs turns a request read off the wire into arguments. Inline
// commands are split like a shell would. A blank line gives nil.
func requestArgs(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		args, err := sanitize(v)
		if err != nil || len(args) == 0 {
			return nil, err
		}
		return args, nil
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		args := make([]string, len(v))
		for i, a := range v {
			s, ok := a.(string)
			if !ok {
				return nil, errors.Annotatef(resp.ErrProtocol, "expected bulk string, got %T", a)
			}
			args[i] = s
		}
		return args, nil
	}
	return nil, errors.Annotatef(resp.ErrProtocol, "unexpected request type %T", v)
}

func (s *Server) handle(state *session, args []string) any {
	cmd, err := ParseArgs(args)
	if err != nil {
		s.metrics.commandDone("invalid", err)
		return err
	}
	if !state.authenticated && cmd.Kind != CmdAuth && cmd.Kind != CmdHello {
		s.metrics.commandDone(cmd.Name, ErrNoAuth)
		return ErrNoAuth
	}

	reply := s.execute(state, cmd)
	err, _ = reply.(error)
	s.metrics.commandDone(cmd.Name, err)
	return reply
}

// execute applies cmd, logging it to the write ahead log if it changed
// the keyspace.
func (s *Server) execute(state *session, cmd *Command) any {
	if s.wal == nil || !cmd.Mutates() {
		return s.apply(state, cmd)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	reply := s.apply(state, cmd)
	if _, failed := reply.(error); !failed {
		s.wal.Append(cmd.Args)
	}
	return reply
}

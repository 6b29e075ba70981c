// Package cluster serializes everything that happens to one DECT cluster.
//
// A Cluster owns a dlc.Manager, a sysinfo.Aggregator and the tail codec of
// its role. Local requests and MAC indications are submitted as jobs to a
// mailbox drained by the single goroutine started with Run, so no two jobs
// of one cluster ever interleave.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/dectctl/internal/dlc"
	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/observability"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/sysinfo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrStopped          = errors.New("cluster: stopped")
	ErrInvalidHeartbeat = errors.New("cluster: invalid heartbeat interval")
	ErrAlreadyRunning   = errors.New("cluster: already running")
	ErrDuplicateCluster = errors.New("cluster: duplicate cluster name")
)

const (
	defaultMailbox        = 64
	defaultHeartbeat      = 30 * time.Second
	defaultMaxConnections = 256
)

// Config configures one cluster.
type Config struct {
	Name           string
	Role           tail.Role
	PARI           identity.ARI
	RPN            uint8
	MaxConnections int
	Mailbox        int
	Heartbeat      time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		Role:           tail.FixedPart,
		MaxConnections: defaultMaxConnections,
		Mailbox:        defaultMailbox,
		Heartbeat:      defaultHeartbeat,
	}
}

type Cluster struct {
	id      uuid.UUID
	cfg     Config
	codec   tail.Codec
	mgr     *dlc.Manager
	agg     *sysinfo.Aggregator
	log     zerolog.Logger
	mailbox chan func()
	running chan struct{}
	done    chan struct{}
}

func New(cfg Config, svc mac.Service, upper dlc.Upper, logger zerolog.Logger) *Cluster {
	if cfg.Mailbox <= 0 {
		cfg.Mailbox = defaultMailbox
	}
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	id := uuid.New()
	logger = logger.With().Str("cluster", cfg.Name).Str("instance", id.String()).Logger()
	return &Cluster{
		id:    id,
		cfg:   cfg,
		codec: tail.NewCodec(cfg.Role),
		mgr: dlc.NewManager(svc, upper, dlc.Options{
			Cluster:        cfg.Name,
			MaxConnections: cfg.MaxConnections,
			Logger:         logger,
		}),
		agg:     sysinfo.NewAggregator(),
		log:     logger.With().Str("component", "cluster").Logger(),
		mailbox: make(chan func(), cfg.Mailbox),
		running: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (c *Cluster) Name() string    { return c.cfg.Name }
func (c *Cluster) ID() uuid.UUID   { return c.id }
func (c *Cluster) Role() tail.Role { return c.cfg.Role }

// PARI is the primary access rights identity of the fixed part this
// cluster belongs to.
func (c *Cluster) PARI() identity.ARI { return c.cfg.PARI }

// Run drains the mailbox until ctx is done. A cluster runs once; when Run
// returns, pending and later calls fail with ErrStopped.
func (c *Cluster) Run(ctx context.Context) error {
	select {
	case c.running <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}
	defer close(c.done)

	if c.cfg.Heartbeat < 0 {
		return ErrInvalidHeartbeat
	}

	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()

	c.log.Info().Stringer("role", c.cfg.Role).Msg("cluster_started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Int("connections", c.mgr.Len()).Msg("cluster_stopped")
			return nil
		case job := <-c.mailbox:
			job()
		case <-ticker.C:
			c.heartbeat()
		}
	}
}

func (c *Cluster) heartbeat() {
	event := c.log.Info().
		Int("connections", c.mgr.Len()).
		Stringer("sysinfo", c.agg.Snapshot().Mask)
	if c.cfg.Role == tail.FixedPart {
		if w, err := c.Beacon(); err == nil {
			event = event.Stringer("beacon", w)
		}
	}
	event.Msg("cluster_heartbeat")
}

// Beacon encodes the identities tail announcing this cluster's PARI and
// radio fixed part number.
func (c *Cluster) Beacon() (tail.Word, error) {
	return c.codec.Encode(tail.Tail{
		ID:  tail.NT,
		Msg: tail.Identities{PARI: c.cfg.PARI, RPN: c.cfg.RPN},
	})
}

// Done is closed once Run has returned.
func (c *Cluster) Done() <-chan struct{} {
	return c.done
}

// call runs fn on the cluster goroutine and waits for its result. A job
// that was accepted still runs if ctx ends while waiting.
func call[T any](ctx context.Context, c *Cluster, fn func() (T, error)) (T, error) {
	var zero T
	type result struct {
		v   T
		err error
	}
	out := make(chan result, 1)
	job := func() {
		v, err := fn()
		out <- result{v, err}
	}

	select {
	case c.mailbox <- job:
	case <-c.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-out:
		return r.v, r.err
	case <-c.done:
		select {
		case r := <-out:
			return r.v, r.err
		default:
			return zero, ErrStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Manage runs fn with exclusive access to the connection manager. MAC
// indications enter the cluster through here.
func (c *Cluster) Manage(ctx context.Context, fn func(m *dlc.Manager) error) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		return struct{}{}, fn(c.mgr)
	})
	return err
}

// Receive decodes one word received from the peer. System information is
// folded into the snapshot; every decoded tail is returned to the caller.
func (c *Cluster) Receive(ctx context.Context, w tail.Word) (tail.Tail, error) {
	t, err := c.codec.Decode(w)
	if err != nil {
		observability.RecordTailError(c.cfg.Name, decodeReason(err))
		return tail.Tail{}, fmt.Errorf("cluster %s: word %s: %w", c.cfg.Name, w, err)
	}
	observability.RecordTailWord(c.cfg.Name, t.ID.String())
	if t.ID != tail.QT {
		return t, nil
	}
	return call(ctx, c, func() (tail.Tail, error) {
		if err := c.agg.Apply(t.Msg); err != nil {
			return tail.Tail{}, err
		}
		observability.RecordSystemInfo(c.cfg.Name, t.Msg.Kind().String())
		return t, nil
	})
}

func decodeReason(err error) string {
	var fe *tail.FieldError
	switch {
	case errors.Is(err, tail.ErrReserved):
		return "reserved"
	case errors.Is(err, tail.ErrEscape):
		return "escape"
	case errors.Is(err, tail.ErrUnsupported):
		return "unsupported"
	case errors.As(err, &fe):
		return "field"
	default:
		return "other"
	}
}

// Transmit encodes a tail sent by this cluster's role.
func (c *Cluster) Transmit(t tail.Tail) (tail.Word, error) {
	return c.codec.Encode(t)
}

func (c *Cluster) Snapshot(ctx context.Context) (sysinfo.SystemInfo, error) {
	return call(ctx, c, func() (sysinfo.SystemInfo, error) {
		return c.agg.Snapshot(), nil
	})
}

// ResetSystemInfo forgets the broadcast, as after losing the carrier.
func (c *Cluster) ResetSystemInfo(ctx context.Context) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		c.agg.Reset()
		return struct{}{}, nil
	})
	return err
}

func (c *Cluster) Connections(ctx context.Context) ([]dlc.Info, error) {
	return call(ctx, c, func() ([]dlc.Info, error) {
		return c.mgr.Connections(), nil
	})
}

func (c *Cluster) Stats(ctx context.Context) (dlc.Stats, error) {
	return call(ctx, c, func() (dlc.Stats, error) {
		return c.mgr.Stats(), nil
	})
}

// Establish creates a bound connection for mci and requests it from the
// MAC layer. A failed request leaves nothing behind.
func (c *Cluster) Establish(ctx context.Context, mci identity.MCI, params mac.ConnParams) (dlc.Info, error) {
	return call(ctx, c, func() (dlc.Info, error) {
		conn, err := c.mgr.Create(mci, nil)
		if err != nil {
			return dlc.Info{}, err
		}
		if err := c.mgr.Bind(conn); err != nil {
			return dlc.Info{}, err
		}
		if err := c.mgr.Establish(conn, params); err != nil {
			if uerr := c.mgr.Unbind(conn); uerr != nil {
				c.log.Warn().Err(uerr).Uint32("mcei", conn.MCEI()).Msg("unbind after failed establish")
			}
			return dlc.Info{}, err
		}
		return conn.Info(), nil
	})
}

// Confirm completes a pending connection with the parameters it was
// requested with, as the MAC layer does when the bearer comes up.
func (c *Cluster) Confirm(ctx context.Context, mcei uint32) (dlc.Info, error) {
	return call(ctx, c, func() (dlc.Info, error) {
		conn, err := c.mgr.Lookup(mcei)
		if err != nil {
			return dlc.Info{}, err
		}
		if err := c.mgr.ConnectConfirm(mcei, conn.Params()); err != nil {
			return dlc.Info{}, err
		}
		return conn.Info(), nil
	})
}

// Close drops the reference taken by Establish.
func (c *Cluster) Close(ctx context.Context, mcei uint32) error {
	return c.Manage(ctx, func(m *dlc.Manager) error {
		conn, err := m.Lookup(mcei)
		if err != nil {
			return err
		}
		return m.Unbind(conn)
	})
}

package cluster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runtime runs a set of clusters side by side. Clusters never share state,
// so each runs on its own goroutine.
type Runtime struct {
	clusters map[string]*Cluster
	order    []string
	log      zerolog.Logger
}

func NewRuntime(logger zerolog.Logger) *Runtime {
	return &Runtime{
		clusters: make(map[string]*Cluster),
		log:      logger.With().Str("component", "runtime").Logger(),
	}
}

func (r *Runtime) Add(c *Cluster) error {
	if _, ok := r.clusters[c.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCluster, c.Name())
	}
	r.clusters[c.Name()] = c
	r.order = append(r.order, c.Name())
	return nil
}

func (r *Runtime) Cluster(name string) (*Cluster, bool) {
	c, ok := r.clusters[name]
	return c, ok
}

// Clusters returns the clusters in the order they were added.
func (r *Runtime) Clusters() []*Cluster {
	out := make([]*Cluster, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.clusters[name])
	}
	return out
}

// Run blocks until ctx is done or a cluster fails; a failure stops the
// others.
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range r.Clusters() {
		g.Go(func() error {
			if err := c.Run(ctx); err != nil {
				return fmt.Errorf("cluster %s: %w", c.Name(), err)
			}
			return nil
		})
	}
	r.log.Info().Int("clusters", len(r.order)).Msg("runtime_started")
	err := g.Wait()
	r.log.Info().Err(err).Msg("runtime_stopped")
	return err
}

package mapreduce

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Coordinator owns the Job entity, performs the splitting step,
// instantiates the Supervisor, drives the two-phase pipeline (map barrier
// -> reduce barrier), and removes the temporary root on success.
type Coordinator struct {
	Config        *Config
	Job           *Job
	Supervisor    *Supervisor
	Metrics       *Metrics
	Logger        *zap.SugaredLogger
	KillMapperIdx int

	metricsServer *http.Server
}

// NewCoordinator builds a Coordinator from cfg. killMapperIdx wires the
// fault-injection hook; -1 disables it.
func NewCoordinator(cfg *Config, killMapperIdx int, logger *zap.SugaredLogger) *Coordinator {
	job := NewJob(cfg.TmpRoot, cfg.OutRoot, cfg.NumMapper, cfg.NumReducer, cfg.DisambiguateJobID)
	metrics := NewMetrics()

	return &Coordinator{
		Config:        cfg,
		Job:           job,
		Supervisor:    NewSupervisor(cfg.LivenessTimeout(), metrics, logger),
		Metrics:       metrics,
		Logger:        logger,
		KillMapperIdx: killMapperIdx,
	}
}

// Run drives the job to completion: split, map barrier, reduce barrier,
// cleanup. It returns a non-nil error on any fatal condition; a hung
// reduce worker is never restarted, so in that case Run returns only when
// its caller's context is done, with the context's error wrapped in
// ErrJobFailed.
func (c *Coordinator) Run(ctx context.Context) error {
	start := time.Now()
	if c.Config.MetricsAddr != "" {
		c.startMetricsServer()
		defer c.stopMetricsServer()
	}

	if err := c.Job.MakeDirs(); err != nil {
		return err
	}

	if err := c.split(); err != nil {
		return err
	}

	if err := c.runMapPhase(ctx); err != nil {
		return fmt.Errorf("%w: map phase: %v", ErrJobFailed, err)
	}

	if err := c.runReducePhase(ctx); err != nil {
		return fmt.Errorf("%w: reduce phase: %v", ErrJobFailed, err)
	}

	if err := c.Job.Cleanup(); err != nil {
		return fmt.Errorf("mapreduce: cleanup: %w", err)
	}

	if werr := c.Supervisor.LastError.Load(); werr != nil {
		c.Logger.Warnw("job completed despite a worker reporting done then exiting badly",
			"job_id", c.Job.ID, "err", werr)
	}

	c.Metrics.JobDuration.Observe(time.Since(start).Seconds())
	c.Logger.Infow("job complete", "job_id", c.Job.ID, "output_dir", c.Job.OutputDir())
	return nil
}

// split runs the Splitter sequentially, before any Map Worker is spawned.
func (c *Coordinator) split() error {
	shardPaths := make([]string, c.Job.NumMap)
	for m := 0; m < c.Job.NumMap; m++ {
		shardPaths[m] = c.Job.ShardPath(m)
	}
	if err := Split(c.Config.InputFile, shardPaths); err != nil {
		return err
	}
	c.Logger.Infow("split complete", "job_id", c.Job.ID, "shards", c.Job.NumMap)
	return nil
}

// runMapPhase spawns all mappers (applying fault injection), then blocks
// on the map-phase monitoring loop until every mapper is Done, which
// happens-before any reducer reads an intermediate file.
func (c *Coordinator) runMapPhase(ctx context.Context) error {
	records, err := c.Supervisor.SpawnMappers(ctx, c.Job, c.Config.MapFunc, c.KillMapperIdx)
	if err != nil {
		return err
	}
	return c.Supervisor.MonitorMappers(ctx, records)
}

// runReducePhase spawns all reducers and blocks on the reduce-phase
// monitoring loop. It is only ever called after runMapPhase returns
// without error, i.e. after the map barrier.
func (c *Coordinator) runReducePhase(ctx context.Context) error {
	records, err := c.Supervisor.SpawnReducers(ctx, c.Job, c.Config.ReduceFunc)
	if err != nil {
		return err
	}
	return c.Supervisor.MonitorReducers(ctx, records)
}

func (c *Coordinator) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Metrics.Handler())
	c.metricsServer = &http.Server{Addr: c.Config.MetricsAddr, Handler: mux}
	go func() {
		if err := c.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.Logger.Warnw("metrics server stopped", "err", err)
		}
	}()
}

func (c *Coordinator) stopMetricsServer() {
	if c.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.metricsServer.Shutdown(ctx)
}

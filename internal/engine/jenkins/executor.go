package jenkins

import (
	"context"
	"fmt"
	"strconv"

	"executorjenkins/internal/engine"
	"executorjenkins/internal/logger"
)

// Build parameter names passed to every build
const (
	ParamBuildID   = "SD_BUILDID"
	ParamToken     = "SD_TOKEN"
	ParamContainer = "SD_CONTAINER"
	ParamAPI       = "SD_API"
	ParamStore     = "SD_STORE"
)

// DefaultJobPrefix is prepended to the build id to name the job
const DefaultJobPrefix = "SD-"

// Ecosystem holds the base URIs of sibling services
type Ecosystem struct {
	API   string
	Store string
}

// Options control how builds map onto Jenkins jobs
type Options struct {
	JobPrefix        string
	Ecosystem        Ecosystem
	IncludeContainer bool
	DestroyAfterStop bool
}

// DefaultOptions includes the container parameter and destroys jobs after stop
func DefaultOptions(eco Ecosystem) Options {
	return Options{
		JobPrefix:        DefaultJobPrefix,
		Ecosystem:        eco,
		IncludeContainer: true,
		DestroyAfterStop: true,
	}
}

// Executor implements engine.Executor against a Jenkins server.
// Every remote call is a descriptor handed to the invoker, so one breaker
// wrapping the invoker covers all of them.
type Executor struct {
	invoker  engine.Invoker
	template TemplateSource
	opts     Options
}

var _ engine.Executor = (*Executor)(nil)

// NewExecutor creates a new Jenkins executor
func NewExecutor(invoker engine.Invoker, template TemplateSource, opts Options) *Executor {
	if opts.JobPrefix == "" {
		opts.JobPrefix = DefaultJobPrefix
	}
	if template == nil {
		template = DefaultTemplate()
	}
	return &Executor{
		invoker:  invoker,
		template: template,
		opts:     opts,
	}
}

// JobName returns the name of the job that runs the given build
func (e *Executor) JobName(buildID int64) string {
	return e.opts.JobPrefix + strconv.FormatInt(buildID, 10)
}

// Start creates or updates the job for the build and triggers it.
// Errors are returned unchanged. A job created before a failed trigger is left in place.
func (e *Executor) Start(ctx context.Context, cfg engine.StartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	xml, err := e.template.Load()
	if err != nil {
		return err
	}

	name := e.JobName(cfg.BuildID)
	log := logger.With("job", name, "build_id", cfg.BuildID)

	res, err := e.invoke(ctx, engine.ModuleJob, engine.ActionExists, name)
	if err != nil {
		return err
	}
	exists, ok := res.(bool)
	if !ok {
		return unexpectedResult(engine.ModuleJob, engine.ActionExists, res)
	}

	if exists {
		log.Debug("Updating existing job")
		_, err = e.invoke(ctx, engine.ModuleJob, engine.ActionConfig, name, xml)
	} else {
		log.Debug("Creating job")
		_, err = e.invoke(ctx, engine.ModuleJob, engine.ActionCreate, name, xml)
	}
	if err != nil {
		return err
	}

	if _, err := e.invoke(ctx, engine.ModuleJob, engine.ActionBuild, name, e.BuildParameters(cfg)); err != nil {
		return err
	}

	log.Info("Build triggered", "container", cfg.Container)
	return nil
}

// BuildParameters returns the parameters passed to the build, in order
func (e *Executor) BuildParameters(cfg engine.StartConfig) Parameters {
	params := Parameters{
		{Name: ParamBuildID, Value: strconv.FormatInt(cfg.BuildID, 10)},
		{Name: ParamToken, Value: cfg.Token},
	}
	if e.opts.IncludeContainer {
		params = append(params, Parameter{Name: ParamContainer, Value: cfg.Container})
	}
	return append(params,
		Parameter{Name: ParamAPI, Value: e.opts.Ecosystem.API},
		Parameter{Name: ParamStore, Value: e.opts.Ecosystem.Store},
	)
}

// Stop aborts the last build of the job and, if configured, deletes the job.
// Returns engine.ErrNoBuildStarted when the job has no recorded build.
func (e *Executor) Stop(ctx context.Context, cfg engine.StopConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	name := e.JobName(cfg.BuildID)
	number, err := e.lastBuild(ctx, name)
	if err != nil {
		return err
	}

	if _, err := e.invoke(ctx, engine.ModuleBuild, engine.ActionStop, name, number); err != nil {
		return err
	}

	if e.opts.DestroyAfterStop {
		if _, err := e.invoke(ctx, engine.ModuleJob, engine.ActionDestroy, name); err != nil {
			return err
		}
	}

	logger.Info("Build stopped", "job", name, "number", number, "destroyed", e.opts.DestroyAfterStop)
	return nil
}

// Status returns the state of the last build of the job
func (e *Executor) Status(ctx context.Context, cfg engine.StatusConfig) (*engine.BuildStatus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	name := e.JobName(cfg.BuildID)
	number, err := e.lastBuild(ctx, name)
	if err != nil {
		return nil, err
	}

	res, err := e.invoke(ctx, engine.ModuleBuild, engine.ActionGet, name, number)
	if err != nil {
		return nil, err
	}
	info, ok := res.(*BuildInfo)
	if !ok || info == nil {
		return nil, unexpectedResult(engine.ModuleBuild, engine.ActionGet, res)
	}

	return &engine.BuildStatus{
		JobName:  name,
		Number:   info.Number,
		Building: info.Building,
		Result:   info.Result,
		URL:      info.URL,
	}, nil
}

// lastBuild fetches the job and returns its last build number
func (e *Executor) lastBuild(ctx context.Context, name string) (int64, error) {
	res, err := e.invoke(ctx, engine.ModuleJob, engine.ActionGet, name)
	if err != nil {
		return 0, err
	}
	job, ok := res.(*JobInfo)
	if !ok {
		return 0, unexpectedResult(engine.ModuleJob, engine.ActionGet, res)
	}

	number, ok := job.LastBuildNumber()
	if !ok {
		return 0, engine.ErrNoBuildStarted
	}
	return number, nil
}

func (e *Executor) invoke(ctx context.Context, module, action string, params ...any) (any, error) {
	return e.invoker.Invoke(ctx, engine.NewOperation(module, action, params...))
}

func unexpectedResult(module, action string, res any) error {
	return fmt.Errorf("unexpected result for %s.%s: %T", module, action, res)
}

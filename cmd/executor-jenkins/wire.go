package main

import (
	"time"

	"executorjenkins/internal/breaker"
	"executorjenkins/internal/config"
	"executorjenkins/internal/engine/jenkins"
)

// newExecutor wires client -> breaker -> executor. metrics may be nil.
func newExecutor(cfg config.Config, metrics breaker.MetricsRecorder) (*jenkins.Executor, *breaker.Breaker) {
	client := jenkins.NewClient(cfg.Jenkins)
	cb := breaker.New(breakerConfig(cfg.Breaker), client, metrics)
	exec := jenkins.NewExecutor(cb, jenkins.NewTemplateSource(cfg.Executor.TemplatePath), executorOptions(cfg))
	return exec, cb
}

func breakerConfig(cfg config.BreakerConfig) breaker.Config {
	return breaker.Config{
		Name:           "jenkins",
		Threshold:      cfg.Threshold,
		Cooldown:       time.Duration(cfg.Cooldown) * time.Second,
		MaxAttempts:    cfg.MaxAttempts,
		BackoffInitial: time.Duration(cfg.BackoffInitialMS) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.BackoffMaxMS) * time.Millisecond,
	}
}

func executorOptions(cfg config.Config) jenkins.Options {
	return jenkins.Options{
		JobPrefix: cfg.Executor.JobPrefix,
		Ecosystem: jenkins.Ecosystem{
			API:   cfg.Ecosystem.API,
			Store: cfg.Ecosystem.Store,
		},
		IncludeContainer: cfg.Executor.ShouldIncludeContainer(),
		DestroyAfterStop: cfg.Executor.ShouldDestroyAfterStop(),
	}
}

package engine

import (
	"context"
	"strings"

	"executorjenkins/internal/apperrors"
)

// ErrNoBuildStarted is returned when a build is stopped or queried before the
// remote job has recorded any build.
var ErrNoBuildStarted = apperrors.Precondition("No build has been started yet, try later")

// StartConfig carries the fields needed to start a build
type StartConfig struct {
	BuildID   int64  `json:"buildId"`
	Container string `json:"container"`
	Token     string `json:"token"`
}

// Validate checks that all required fields are set
func (c StartConfig) Validate() error {
	if c.BuildID <= 0 {
		return apperrors.Validation("buildId", "buildId is required")
	}
	if strings.TrimSpace(c.Container) == "" {
		return apperrors.Validation("container", "container is required")
	}
	if c.Token == "" {
		return apperrors.Validation("token", "token is required")
	}
	return nil
}

// StopConfig carries the fields needed to stop a build
type StopConfig struct {
	BuildID int64 `json:"buildId"`
}

// Validate checks that all required fields are set
func (c StopConfig) Validate() error {
	if c.BuildID <= 0 {
		return apperrors.Validation("buildId", "buildId is required")
	}
	return nil
}

// StatusConfig carries the fields needed to query a build
type StatusConfig struct {
	BuildID int64 `json:"buildId"`
}

// Validate checks that all required fields are set
func (c StatusConfig) Validate() error {
	if c.BuildID <= 0 {
		return apperrors.Validation("buildId", "buildId is required")
	}
	return nil
}

// BuildStatus represents the state of the last build of a job
type BuildStatus struct {
	JobName  string `json:"job"`
	Number   int64  `json:"number"`
	Building bool   `json:"building"`
	Result   string `json:"result,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Executor is the capability set the orchestration layer depends on
type Executor interface {
	// Start creates or updates the job for the build and triggers it
	Start(ctx context.Context, cfg StartConfig) error

	// Stop aborts the last build of the job for the build
	Stop(ctx context.Context, cfg StopConfig) error

	// Status returns the state of the last build of the job for the build
	Status(ctx context.Context, cfg StatusConfig) (*BuildStatus, error)
}

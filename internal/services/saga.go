package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Step is one write in a multi-document operation. A failing required step
// stops the saga and is returned; a failing best-effort step is logged and
// the saga continues. Completed steps are never rolled back.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context) error
}

type Saga struct {
	name  string
	log   logrus.FieldLogger
	steps []Step
}

func NewSaga(name string, log logrus.FieldLogger) *Saga {
	return &Saga{name: name, log: log.WithField("saga", name)}
}

func (s *Saga) Must(name string, run func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{Name: name, Run: run})
	return s
}

func (s *Saga) Try(name string, run func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{Name: name, BestEffort: true, Run: run})
	return s
}

func (s *Saga) Run(ctx context.Context) error {
	for _, step := range s.steps {
		err := step.Run(ctx)
		if err == nil {
			continue
		}
		entry := s.log.WithField("stage", step.Name).WithError(err)
		if step.BestEffort {
			entry.Warn("best-effort step failed")
			continue
		}
		entry.Error("step failed, aborting")
		return fmt.Errorf("%s: %s: %w", s.name, step.Name, err)
	}
	return nil
}

package mqtbridge

import (
	"errors"
	"fmt"

	logger "gitlab.com/hidroponik/iot.sensor_bridge/src/production/MQT.Logger"
)

// Step is one named unit of teardown work
type Step struct {
	Name string
	Run  func() error
}

// Teardown runs every step in order. A failing or panicking step does not
// stop the ones after it; all errors are joined.
func Teardown(log *logger.Logger, steps ...Step) error {
	var errs []error
	for _, step := range steps {
		stepLog := log.WithField("step", step.Name)
		if err := runStep(step); err != nil {
			stepLog.WithError(err).Error("Teardown step failed")
			errs = append(errs, err)
			continue
		}
		stepLog.Debug("Teardown step done")
	}
	return errors.Join(errs...)
}

func runStep(step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", step.Name, r)
		}
	}()
	if err := step.Run(); err != nil {
		return fmt.Errorf("%s: %w", step.Name, err)
	}
	return nil
}

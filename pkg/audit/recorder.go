package audit

import (
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/util"
)

// Recorder stamps events with the run they belong to and hands them to a
// Logger. A nil *Recorder discards events, so components can hold one
// unconditionally.
type Recorder struct {
	logger Logger
	runID  string
	user   string
	log    *logrus.Entry
}

// NewRecorder returns a recorder writing to logger.
func NewRecorder(logger Logger, runID, user string) *Recorder {
	return &Recorder{
		logger: logger,
		runID:  runID,
		user:   user,
		log:    util.WithComponent("audit"),
	}
}

// RunID returns the id stamped on every recorded event.
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Record writes the event. A write failure is logged, never returned:
// auditing must not abort provisioning.
func (r *Recorder) Record(e *Event) {
	if r == nil || r.logger == nil {
		return
	}
	e.RunID = r.runID
	e.User = r.user
	if err := r.logger.Log(e); err != nil {
		r.log.Warnf("Could not write audit event: %v", err)
	}
}

package flow

import (
	"context"
	"log/slog"

	"github.com/superfly/fsm"

	"github.com/mik-tf/isobootmaker/pkg/db"
	"github.com/mik-tf/isobootmaker/pkg/device"
	"github.com/mik-tf/isobootmaker/pkg/errors"
	"github.com/mik-tf/isobootmaker/pkg/image"
	"github.com/mik-tf/isobootmaker/pkg/prompt"
	"github.com/mik-tf/isobootmaker/pkg/sysops"
)

// TargetValidator resolves and gates target block devices.
type TargetValidator interface {
	List() ([]device.Device, error)
	ValidateTarget(path string) (device.Device, error)
}

// ImageResolver turns operator input into a validated local image file.
type ImageResolver interface {
	Resolve(ctx context.Context, input string) (image.Resolved, error)
}

// Machine drives one interactive write session through the FSM states.
type Machine struct {
	prompter *prompt.Prompter
	resolver TargetValidator
	acquirer ImageResolver
	sys      sysops.Manager
	journal  *db.Repository
}

func NewMachine(prompter *prompt.Prompter, resolver TargetValidator, acquirer ImageResolver, sys sysops.Manager, journal *db.Repository) *Machine {
	return &Machine{
		prompter: prompter,
		resolver: resolver,
		acquirer: acquirer,
		sys:      sys,
		journal:  journal,
	}
}

// Register wires the write workflow into the FSM manager and returns the
// start and resume functions.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[WriteRequest, WriteSession], fsm.Resume, error) {
	start, resume, err := fsm.Register[WriteRequest, WriteSession](manager, "usb-write").
		Start(StateShowLayout, m.step(m.stageShowLayout)).
		To(StateUnmount, m.step(m.stageUnmount)).
		To(StateSelectTarget, m.step(m.stageSelectTarget)).
		To(StateSelectImage, m.step(m.stageSelectImage)).
		To(StateConfirmWrite, m.step(m.stageConfirmWrite)).
		To(StateWrite, m.step(m.stageWrite)).
		To(StateSync, m.step(m.stageSync)).
		To(StateOfferEject, m.step(m.stageOfferEject)).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register write workflow")
	}
	return start, resume, nil
}

type stageFunc func(ctx context.Context, sess *WriteSession) error

// step adapts a stage function to an FSM handler. A cancelled session passes
// through untouched so the machine drains to the complete state; a stage
// error aborts the run.
func (m *Machine) step(stage stageFunc) func(ctx context.Context, req *fsm.Request[WriteRequest, WriteSession]) (*fsm.Response[WriteSession], error) {
	return func(ctx context.Context, req *fsm.Request[WriteRequest, WriteSession]) (*fsm.Response[WriteSession], error) {
		sess := req.W.Msg
		if sess == nil {
			sess = &WriteSession{}
		}
		if sess.SessionKey == "" {
			sess.SessionKey = req.Msg.SessionKey
		}
		if sess.Outcome == OutcomeCancelled {
			return fsm.NewResponse(sess), nil
		}
		if err := stage(ctx, sess); err != nil {
			return nil, fsm.Abort(err)
		}
		return fsm.NewResponse(sess), nil
	}
}

// handleComplete runs even for cancelled sessions so the closing message is
// always printed.
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[WriteRequest, WriteSession]) (*fsm.Response[WriteSession], error) {
	sess := req.W.Msg
	if sess == nil {
		sess = &WriteSession{}
	}
	m.stageComplete(ctx, sess)
	return fsm.NewResponse(sess), nil
}

func (m *Machine) stageComplete(_ context.Context, sess *WriteSession) {
	if sess.Outcome == OutcomeCancelled {
		m.prompter.Println("Operation cancelled.")
		slog.Info("session_cancelled", "session_key", sess.SessionKey)
		return
	}
	sess.Outcome = OutcomeSuccess
	m.prompter.Println("Done! The device is ready to boot.")
	slog.Info("session_complete",
		"session_key", sess.SessionKey,
		"device", sess.TargetDevice,
		"image", sess.ImagePath,
	)
}

package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/stageboard/internal/domain"
)

// SyncNoticeKind classifies a user-facing synchronization notice.
type SyncNoticeKind string

// NoticeCommitFailed and related constants enumerate notice kinds.
const (
	NoticeCommitFailed SyncNoticeKind = "commit_failed"
	NoticeResyncFailed SyncNoticeKind = "resync_failed"
)

// SyncNotice is the optional "sync failed, refreshing" notification.
type SyncNotice struct {
	Kind    SyncNoticeKind
	ItemID  string
	Message string
	Err     error
}

// SyncConfig holds the collaborators of a Synchronizer.
type SyncConfig struct {
	Scope      string
	Stages     domain.StageSet
	Store      TaskStore
	Dispatcher Dispatcher
	Logger     Logger
}

// Synchronizer pushes cross-stage drops to the task store and resyncs the board on failure.
// All methods and callbacks run on the event loop.
type Synchronizer struct {
	scope      string
	stages     domain.StageSet
	store      TaskStore
	dispatcher Dispatcher
	logger     Logger

	apply  func(*domain.Board)
	notify func(SyncNotice)

	inflight    map[string]PendingTransition
	issuedSeq   uint64
	appliedSeq  uint64
	finalResync bool
	// commitSeq is issuedSeq at the latest Commit. A snapshot with seq <= commitSeq may predate it.
	commitSeq uint64
}

// NewSynchronizer constructs a synchronizer. apply receives each accepted snapshot board.
func NewSynchronizer(cfg SyncConfig, apply func(*domain.Board), notify func(SyncNotice)) *Synchronizer {
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if apply == nil {
		apply = func(*domain.Board) {}
	}
	if notify == nil {
		notify = func(SyncNotice) {}
	}
	return &Synchronizer{
		scope:      cfg.Scope,
		stages:     cfg.Stages,
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		apply:      apply,
		notify:     notify,
		inflight:   map[string]PendingTransition{},
	}
}

// Commit issues one asynchronous status update for pt.
func (s *Synchronizer) Commit(pt PendingTransition) {
	status, ok := s.stages.Status(pt.To)
	if !ok {
		err := fmt.Errorf("%w: stage %q has no status", ErrInvalidStatus, pt.To)
		s.logger.Error("commit rejected", "item", pt.ItemID, "stage", pt.To, "err", err)
		s.notify(SyncNotice{Kind: NoticeCommitFailed, ItemID: pt.ItemID, Message: "sync failed, refreshing", Err: err})
		s.Resync()
		return
	}

	s.inflight[pt.Token] = pt
	s.commitSeq = s.issuedSeq
	s.logger.Debug("commit issued", "item", pt.ItemID, "from", pt.From, "to", pt.To, "status", status, "token", pt.Token)
	s.dispatcher.Go(func(ctx context.Context) error {
		return s.store.UpdateStatus(ctx, pt.ItemID, status)
	}, func(err error) {
		s.complete(pt, err)
	})
}

func (s *Synchronizer) complete(pt PendingTransition, err error) {
	delete(s.inflight, pt.Token)

	resync := false
	if err != nil {
		s.logger.Warn("commit failed", "item", pt.ItemID, "to", pt.To, "token", pt.Token, "err", err)
		s.notify(SyncNotice{Kind: NoticeCommitFailed, ItemID: pt.ItemID, Message: "sync failed, refreshing", Err: err})
		resync = true
		if len(s.inflight) > 0 {
			s.finalResync = true
		}
	} else {
		s.logger.Info("commit confirmed", "item", pt.ItemID, "to", pt.To, "token", pt.Token)
	}

	if len(s.inflight) == 0 && s.finalResync {
		s.finalResync = false
		resync = true
	}
	if resync {
		s.Resync()
	}
}

// Resync fetches an authoritative snapshot and replaces the board with it.
func (s *Synchronizer) Resync() {
	s.issuedSeq++
	seq := s.issuedSeq
	overlapped := len(s.inflight) > 0
	var records []domain.TaskRecord
	s.logger.Debug("resync issued", "scope", s.scope, "seq", seq, "inflight", len(s.inflight))
	s.dispatcher.Go(func(ctx context.Context) error {
		out, err := s.store.ListTasks(ctx, s.scope)
		records = out
		return err
	}, func(err error) {
		s.applySnapshot(seq, overlapped, records, err)
	})
}

// applySnapshot replaces the board with the snapshot of resync seq. overlapped reports that a
// commit was in flight when the resync was issued.
func (s *Synchronizer) applySnapshot(seq uint64, overlapped bool, records []domain.TaskRecord, err error) {
	if seq < s.appliedSeq {
		s.logger.Debug("stale snapshot dropped", "seq", seq, "applied", s.appliedSeq)
		return
	}
	if err != nil {
		s.logger.Error("resync failed", "scope", s.scope, "seq", seq, "err", err)
		s.notify(SyncNotice{Kind: NoticeResyncFailed, Message: "refresh failed, showing local state", Err: err})
		return
	}
	if overlapped || s.commitSeq >= seq {
		s.deferSnapshot(seq)
		return
	}

	board, skipped, err := BoardFromRecords(s.stages, records)
	if err != nil {
		s.logger.Error("resync snapshot rejected", "scope", s.scope, "seq", seq, "err", err)
		s.notify(SyncNotice{Kind: NoticeResyncFailed, Message: "refresh failed, showing local state", Err: err})
		return
	}
	for _, skip := range skipped {
		if skip.unknownStatus() {
			s.logger.Warn("record with unknown status skipped", "id", skip.Record.ID, "status", strings.TrimSpace(skip.Record.Status))
			continue
		}
		s.logger.Warn("record skipped", "id", skip.Record.ID, "err", skip.Err)
	}
	s.appliedSeq = seq
	s.logger.Info("resync applied", "scope", s.scope, "seq", seq, "items", board.Len(), "skipped", len(skipped))
	s.apply(board)
}

// deferSnapshot drops a snapshot that may have been read before a concurrent commit landed and
// makes sure a later resync replaces it.
func (s *Synchronizer) deferSnapshot(seq uint64) {
	switch {
	case s.issuedSeq > seq:
		s.logger.Debug("snapshot superseded by pending resync", "seq", seq, "issued", s.issuedSeq)
	case len(s.inflight) > 0:
		s.finalResync = true
		s.logger.Debug("snapshot deferred until commits drain", "seq", seq, "inflight", len(s.inflight))
	default:
		s.logger.Debug("snapshot raced a commit, refreshing", "seq", seq)
		s.Resync()
	}
}

// InFlight returns the number of unconfirmed transitions.
func (s *Synchronizer) InFlight() int {
	return len(s.inflight)
}

// Pending lists unconfirmed transitions in issue order.
func (s *Synchronizer) Pending() []PendingTransition {
	out := make([]PendingTransition, 0, len(s.inflight))
	for _, pt := range s.inflight {
		out = append(out, pt)
	}
	slices.SortFunc(out, func(a, b PendingTransition) int {
		if c := a.IssuedAt.Compare(b.IssuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Token, b.Token)
	})
	return out
}

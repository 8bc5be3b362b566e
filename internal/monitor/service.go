// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package monitor runs the poll loop: read the connection table, decode it,
// slide the detection window and act on flagged peers.
package monitor

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"go4.org/netipx"

	"grimm.is/scanwall/internal/clock"
	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/detector"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/firewall"
	"grimm.is/scanwall/internal/logging"
	"grimm.is/scanwall/internal/metrics"
	"grimm.is/scanwall/internal/notification"
	"grimm.is/scanwall/internal/procnet"
	"grimm.is/scanwall/internal/render"
)

// maxResults bounds the in-memory event history.
const maxResults = 256

// Notifier delivers alerts. *notification.Dispatcher satisfies it.
type Notifier interface {
	Send(n notification.Notification) error
}

// Options wires a Service. Source and Blocker are required.
type Options struct {
	Source     procnet.Source
	Blocker    firewall.Blocker
	Registry   *detector.BlockRegistry
	Interval   time.Duration
	WindowSize int
	Threshold  int // 0 flags any peer; see detector.DefaultThreshold
	Allowlist  []string

	Console  *render.Console
	Metrics  *metrics.Metrics
	Notifier Notifier
	Hostname string

	Clock  clock.Clock
	Logger *logging.Logger
}

type connKey struct {
	local, peer string
	dir         procnet.Direction
}

// Service manages the background poll loop.
type Service struct {
	opts     Options
	logger   *logging.Logger
	clock    clock.Clock
	store    *detector.WindowStore
	detector *detector.Detector
	allow    *netipx.IPSet

	// owned by the poll loop
	previous   map[connKey]struct{}
	emptyShown bool

	resultsMu sync.RWMutex
	results   []detector.ScanEvent

	notifyWG sync.WaitGroup

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService validates opts and builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New(errors.KindValidation, "monitor: source is required")
	}
	if opts.Blocker == nil {
		return nil, errors.New(errors.KindValidation, "monitor: blocker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = detector.DefaultWindowSize
	}
	if opts.Threshold < 0 {
		return nil, errors.Attr(errors.Errorf(errors.KindValidation, "monitor: negative threshold %d", opts.Threshold), "threshold", opts.Threshold)
	}
	if opts.Registry == nil {
		opts.Registry = detector.NewBlockRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("monitor")
	}

	allow, err := buildAllowlist(opts.Allowlist)
	if err != nil {
		return nil, err
	}

	det := detector.New(opts.Threshold, opts.Registry, opts.Blocker, opts.Logger.WithComponent("detector"))
	det.Clock = opts.Clock

	return &Service{
		opts:     opts,
		logger:   opts.Logger,
		clock:    opts.Clock,
		store:    detector.NewWindowStore(opts.WindowSize, opts.Clock),
		detector: det,
		allow:    allow,
		previous: make(map[connKey]struct{}),
	}, nil
}

func buildAllowlist(entries []string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, e := range entries {
		p, err := config.ParseAllowEntry(e)
		if err != nil {
			return nil, errors.Attr(errors.Wrap(err, errors.KindValidation, "invalid allowlist entry"), "entry", e)
		}
		b.AddPrefix(p)
	}
	return b.IPSet()
}

// Registry returns the block registry shared with the decoder and detector.
func (s *Service) Registry() *detector.BlockRegistry {
	return s.opts.Registry
}

// Allowed reports whether ip is on the allowlist.
func (s *Service) Allowed(ip string) bool {
	a, err := netip.ParseAddr(ip)
	return err == nil && s.allow.Contains(a)
}

// Cycle runs one read, decode, insert and evaluate pass.
//
// An empty table counts as zero records. A decode error aborts the pass
// before the window is touched and is returned with KindValidation.
func (s *Service) Cycle(ctx context.Context) ([]detector.ScanEvent, error) {
	start := s.clock.Now()

	lines, err := s.opts.Source.ReadSnapshot(ctx)
	switch {
	case errors.Is(err, procnet.ErrEmptySnapshot):
		s.logger.Warn("connection table is empty")
		s.countReadError()
		lines = nil
	case err != nil:
		s.countReadError()
		return nil, err
	}

	records, err := procnet.Decode(lines, s.opts.Registry)
	if err != nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.DecodeErrors.Inc()
		}
		s.logger.WithError(err).WithFields(errors.GetAttributes(err)).Error("decode failed, cycle aborted")
		return nil, err
	}

	fresh := s.reportConnections(records)

	watched := records[:0:0]
	for _, r := range records {
		if !s.Allowed(r.Peer.IP) {
			watched = append(watched, r)
		}
	}
	s.store.Insert(watched, s.store.Len() >= s.store.Capacity())

	events := s.detector.Evaluate(s.store)
	for _, ev := range events {
		s.handleEvent(ev)
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveCycle(len(records), fresh, s.store.Len(), s.clock.Now().Sub(start))
	}
	s.logger.Debug("cycle complete",
		"records", len(records),
		"new", fresh,
		"snapshots", s.store.Len(),
		"events", len(events))
	return events, nil
}

func (s *Service) countReadError() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ReadErrors.Inc()
	}
}

// reportConnections prints records absent from the previous cycle and
// returns how many there were.
func (s *Service) reportConnections(records []procnet.ConnectionRecord) int {
	if len(records) == 0 {
		if s.opts.Console != nil && !s.emptyShown {
			s.opts.Console.Empty()
		}
		s.emptyShown = true
		s.previous = make(map[connKey]struct{})
		return 0
	}
	s.emptyShown = false

	now := s.clock.Now()
	current := make(map[connKey]struct{}, len(records))
	fresh := 0
	for _, r := range records {
		k := connKey{local: r.Local.String(), peer: r.Peer.String(), dir: r.Direction}
		if _, dup := current[k]; dup {
			continue
		}
		current[k] = struct{}{}
		if _, ok := s.previous[k]; ok {
			continue
		}
		fresh++
		if s.opts.Console != nil {
			s.opts.Console.Connection(now, r)
		}
	}
	s.previous = current
	return fresh
}

func (s *Service) handleEvent(ev detector.ScanEvent) {
	if s.opts.Console != nil {
		s.opts.Console.Scan(ev)
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveBlock(ev.Outcome)
	}

	s.resultsMu.Lock()
	s.results = append(s.results, ev)
	if len(s.results) > maxResults {
		s.results = s.results[len(s.results)-maxResults:]
	}
	s.resultsMu.Unlock()

	if s.opts.Notifier != nil {
		n := notification.ForScan(ev, s.opts.Hostname)
		s.notifyWG.Add(1)
		go func() {
			defer s.notifyWG.Done()
			if err := s.opts.Notifier.Send(n); err != nil {
				s.logger.WithError(err).Warn("scan notification not delivered", "peer", ev.Peer)
			}
		}()
	}
}

// Results returns recent scan events, oldest first.
func (s *Service) Results() []detector.ScanEvent {
	s.resultsMu.RLock()
	defer s.resultsMu.RUnlock()
	return append([]detector.ScanEvent(nil), s.results...)
}

// Run polls until ctx is cancelled. The first cycle runs immediately.
// Decode errors skip a cycle; read errors end the loop and are returned.
func (s *Service) Run(ctx context.Context) error {
	defer s.notifyWG.Wait()

	s.logger.Info("monitor started",
		"source", describeSource(s.opts.Source),
		"interval", s.opts.Interval,
		"window", s.opts.WindowSize,
		"threshold", s.opts.Threshold)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.GetKind(err) != errors.KindValidation {
				return err
			}
		}

		select {
		case <-ctx.Done():
			s.logger.Info("monitor stopped", "blocked", s.opts.Registry.Len())
			return nil
		case <-ticker.C:
		}
	}
}

// Start runs the loop in the background.
func (s *Service) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			s.logger.WithError(err).Error("monitor loop exited")
		}
	}()
}

// Stop cancels a loop begun with Start and waits for it.
func (s *Service) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func describeSource(src procnet.Source) string {
	if fs, ok := src.(*procnet.FileSource); ok {
		return fs.Path
	}
	return "custom"
}

package metrics

import "go.uber.org/zap"

// Safe wraps r so that a panic inside any report call is recovered and
// logged instead of unwinding into the cache operation that made the call.
// A nil r yields Noop; a nil log discards the recovered panics.
func Safe(r Reporter, log *zap.Logger) Reporter {
	switch r := r.(type) {
	case nil, Noop:
		return Noop{}
	case *safe:
		return r
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &safe{next: r, log: log}
}

type safe struct {
	next Reporter
	log  *zap.Logger
}

func (s *safe) ReportMerge(prefix, typ string, st MergeStats) {
	defer s.recover("merge", prefix, typ)
	s.next.ReportMerge(prefix, typ, st)
}

func (s *safe) ReportEvict(prefix, typ string, st EvictStats) {
	defer s.recover("evict", prefix, typ)
	s.next.ReportEvict(prefix, typ, st)
}

func (s *safe) ReportGet(prefix, typ string, st GetStats) {
	defer s.recover("get", prefix, typ)
	s.next.ReportGet(prefix, typ, st)
}

func (s *safe) recover(op, prefix, typ string) {
	if v := recover(); v != nil {
		s.log.Warn("metrics: reporter panicked",
			zap.String("op", op),
			zap.String("prefix", prefix),
			zap.String("type", typ),
			zap.Any("panic", v),
		)
	}
}

// Multi fans each report out to every non-nil reporter, in order.
// Every target is wrapped with Safe, so one failing backend does not stop
// the rest from recording.
func Multi(log *zap.Logger, rs ...Reporter) Reporter {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		if _, ok := r.(Noop); ok {
			continue
		}
		out = append(out, Safe(r, log))
	}
	switch len(out) {
	case 0:
		return Noop{}
	case 1:
		return out[0]
	}
	return out
}

type multi []Reporter

func (m multi) ReportMerge(prefix, typ string, s MergeStats) {
	for _, r := range m {
		r.ReportMerge(prefix, typ, s)
	}
}

func (m multi) ReportEvict(prefix, typ string, s EvictStats) {
	for _, r := range m {
		r.ReportEvict(prefix, typ, s)
	}
}

func (m multi) ReportGet(prefix, typ string, s GetStats) {
	for _, r := range m {
		r.ReportGet(prefix, typ, s)
	}
}

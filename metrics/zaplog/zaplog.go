// Package zaplog writes cache reports as structured log entries.
package zaplog

import (
	"github.com/IvanBrykalov/catscache/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Reporter logs one entry per report. Entries below the configured level
// are dropped by zap before any field is encoded.
type Reporter struct {
	log   *zap.Logger
	level zapcore.Level
}

// New returns a Reporter writing to log at level. A nil log discards everything.
func New(log *zap.Logger, level zapcore.Level) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log.Named("cache.metrics"), level: level}
}

// ReportMerge implements metrics.Reporter.
func (r *Reporter) ReportMerge(prefix, typ string, s metrics.MergeStats) {
	if ce := r.log.Check(r.level, "cache merge"); ce != nil {
		ce.Write(
			zap.String("prefix", prefix),
			zap.String("type", typ),
			zap.Int("item_count", s.ItemCount),
			zap.Int("items_stored", s.ItemsStored),
			zap.Int("relationship_count", s.RelationshipCount),
			zap.Int("relationships_stored", s.RelationshipsStored),
			zap.Int("select_operations", s.SelectOperations),
			zap.Int("write_operations", s.WriteOperations),
			zap.Int("delete_operations", s.DeleteOperations),
			zap.Int("duplicates", s.Duplicates),
		)
	}
}

// ReportEvict implements metrics.Reporter.
func (r *Reporter) ReportEvict(prefix, typ string, s metrics.EvictStats) {
	if ce := r.log.Check(r.level, "cache evict"); ce != nil {
		ce.Write(
			zap.String("prefix", prefix),
			zap.String("type", typ),
			zap.Int("item_count", s.ItemCount),
			zap.Int("items_deleted", s.ItemsDeleted),
			zap.Int("delete_operations", s.DeleteOperations),
		)
	}
}

// ReportGet implements metrics.Reporter.
func (r *Reporter) ReportGet(prefix, typ string, s metrics.GetStats) {
	if ce := r.log.Check(r.level, "cache get"); ce != nil {
		ce.Write(
			zap.String("prefix", prefix),
			zap.String("type", typ),
			zap.String("mode", s.Mode()),
			zap.Int("item_count", s.ItemCount),
			zap.Int("requested_size", s.RequestedSize),
			zap.Int("relationships_requested", s.RelationshipsRequested),
			zap.Int("select_operations", s.SelectOperations),
		)
	}
}

var _ metrics.Reporter = (*Reporter)(nil)

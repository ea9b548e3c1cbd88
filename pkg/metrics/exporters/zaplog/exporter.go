// Package zaplog exports opencensus views to a zap logger.
package zaplog

import (
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

// NewExporter builds an exporter logging views at debug level
func NewExporter(l *zap.Logger) *Exporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Exporter{
		l: l,
	}
}

var _ view.Exporter = &Exporter{}

// Exporter logs view data
type Exporter struct {
	l *zap.Logger
}

// ExportView logs the rows of a view
func (e *Exporter) ExportView(viewData *view.Data) {
	for _, row := range viewData.Rows {
		e.l.Debug("metric",
			zap.String("view", viewData.View.Name),
			zap.String("tags", row.String()),
		)
	}
}

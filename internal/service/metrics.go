package service

import (
	"time"

	"github.com/Sentinel-Gate/filegate/internal/port/outbound"
)

// nopMetrics discards all events. Used when no recorder is configured.
type nopMetrics struct{}

func (nopMetrics) ConnectionRejected(string) {}
func (nopMetrics) SessionOpened() {}
func (nopMetrics) SessionClosed() {}
func (nopMetrics) CommandHandled(string, time.Duration) {}
func (nopMetrics) FileBytesSent(int64) {}

var _ outbound.MetricsRecorder = nopMetrics{}

package metrics

// NopCollector discards all metrics.
type NopCollector struct{}

var _ Collector = (*NopCollector)(nil)

// NewNop creates a no-op collector.
func NewNop() *NopCollector {
	return &NopCollector{}
}

func (*NopCollector) SessionRegistered() {}
func (*NopCollector) SessionRejected(_ string) {}
func (*NopCollector) SessionDisposed(_ string) {}
func (*NopCollector) DisposeFailed() {}
func (*NopCollector) RegistryDisposed(_ int) {}
func (*NopCollector) ConnectionOpened() {}
func (*NopCollector) ConnectionClosed() {}

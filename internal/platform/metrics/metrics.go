package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests      uint64
	errorRequests      uint64
	rateLimited        uint64
	totalDurationMs    uint64
	calculations       uint64
	rejectedCalcs      uint64
	jobsCompleted      uint64
	jobsFailed         uint64
	jobsDropped        uint64
	holidayReloads     uint64
	holidayReloadFails uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordCalculation counts a pay calculation; rejected ones failed validation.
func (c *Collector) RecordCalculation(rejected bool) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.calculations, 1)
	if rejected {
		atomic.AddUint64(&c.rejectedCalcs, 1)
	}
}

func (c *Collector) RecordJob(failed bool) {
	if c == nil {
		return
	}
	if failed {
		atomic.AddUint64(&c.jobsFailed, 1)
		return
	}
	atomic.AddUint64(&c.jobsCompleted, 1)
}

func (c *Collector) RecordJobDropped() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.jobsDropped, 1)
}

func (c *Collector) RecordHolidayReload(failed bool) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.holidayReloads, 1)
	if failed {
		atomic.AddUint64(&c.holidayReloadFails, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":             total,
		"errorsTotal":               atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal":          atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":             avg,
		"totalDurationMs":           totalMs,
		"calculationsTotal":         atomic.LoadUint64(&c.calculations),
		"calculationsRejectedTotal": atomic.LoadUint64(&c.rejectedCalcs),
		"jobsCompletedTotal":        atomic.LoadUint64(&c.jobsCompleted),
		"jobsFailedTotal":           atomic.LoadUint64(&c.jobsFailed),
		"jobsDroppedTotal":          atomic.LoadUint64(&c.jobsDropped),
		"holidayReloadsTotal":       atomic.LoadUint64(&c.holidayReloads),
		"holidayReloadFailsTotal":   atomic.LoadUint64(&c.holidayReloadFails),
	}
}

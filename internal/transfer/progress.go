package transfer

import "sync/atomic"

// Progress tracks cumulative bytes sent across an upload. Only fully
// completed segments are credited, so the fraction never regresses when a
// segment is retried.
type Progress struct {
	total int64
	sent  atomic.Int64
}

func newProgress(total int64) *Progress {
	return &Progress{total: total}
}

func (p *Progress) add(n int64) {
	p.sent.Add(n)
}

// Sent returns the bytes of completed segments so far.
func (p *Progress) Sent() int64 {
	return p.sent.Load()
}

// Total returns the full transfer size in bytes.
func (p *Progress) Total() int64 {
	return p.total
}

// Fraction returns Sent/Total as a monotonically non-decreasing value in
// [0, 1].
func (p *Progress) Fraction() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.sent.Load()) / float64(p.total)
}

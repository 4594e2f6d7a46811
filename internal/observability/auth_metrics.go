package observability

// The helpers below are nil-safe so services can run without a registry
// (tests, the admin CLI).

func (p *Prom) ObserveAuth(flow, outcome string) {
	if p == nil {
		return
	}
	p.AuthOutcomes.WithLabelValues(flow, outcome).Inc()
}

func (p *Prom) ObserveSession(op string, err error) {
	if p == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.SessionOps.WithLabelValues(op, status).Inc()
}

func (p *Prom) ObserveNotify(kind, result string) {
	if p == nil {
		return
	}
	p.NotifyResults.WithLabelValues(kind, result).Inc()
}

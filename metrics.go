package pubsite

import "github.com/prometheus/client_golang/prometheus"

type siteMetrics struct {
	postWrites *prometheus.CounterVec
	uploads    *prometheus.CounterVec
	logins     *prometheus.CounterVec
}

func newSiteMetrics(reg prometheus.Registerer) *siteMetrics {
	m := &siteMetrics{
		postWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubsite",
			Name:      "post_writes_total",
			Help:      "Blog post writes by operation and result.",
		}, []string{"op", "result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubsite",
			Name:      "uploads_total",
			Help:      "Image uploads by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubsite",
			Name:      "login_attempts_total",
			Help:      "Admin login attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.postWrites, m.uploads, m.logins)
	return m
}

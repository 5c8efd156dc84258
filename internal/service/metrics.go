package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodrescue_claims_total",
			Help: "Claim attempts by outcome.",
		},
		[]string{"result"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodrescue_notifications_total",
			Help: "Claim notifications by channel (relay, email) and outcome.",
		},
		[]string{"channel", "result"},
	)

	digestEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodrescue_digest_emails_total",
			Help: "Daily digest emails by outcome.",
		},
		[]string{"result"},
	)

	postsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodrescue_posts_expired_total",
		Help: "Posts moved to expired by the sweep.",
	})

	analyticsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodrescue_analytics_cache_hits_total",
		Help: "Analytics overviews served from cache.",
	})
	analyticsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodrescue_analytics_cache_misses_total",
		Help: "Analytics overviews computed from the database.",
	})
)

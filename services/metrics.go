package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coinDeltasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_coin_deltas_total",
		Help: "Coin deltas applied through the ledger, by reason.",
	}, []string{"reason"})

	coinsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_coins_issued_total",
		Help: "Sum of positive coin deltas, by reason.",
	}, []string{"reason"})

	signupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_signups_total",
		Help: "Signup attempts, by outcome.",
	}, []string{"outcome"})

	referralBonusesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_referral_bonuses_total",
		Help: "Referral bonuses issued to inviters.",
	})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_identity_compensations_total",
		Help: "Identity deletions after a failed profile insert, by result.",
	}, []string{"result"})

	campaignsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_campaigns_completed_total",
		Help: "Campaigns that reached their interval total.",
	})

	orphansSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_orphan_identities_swept_total",
		Help: "Identities without a profile deleted by the sweeper.",
	})
)

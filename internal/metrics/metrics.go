package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransactionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_completed_total",
			Help: "Completed wallet transactions",
		},
		[]string{"direction", "category"},
	)
	TransactionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_rejected_total",
			Help: "Wallet transactions rejected for insufficient balance",
		},
		[]string{"direction"},
	)
	SubscriptionPurchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_purchases_total",
			Help: "Successful subscription purchases",
		},
		[]string{"plan"},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(TransactionsCompleted)
	prometheus.MustRegister(TransactionsRejected)
	prometheus.MustRegister(SubscriptionPurchases)
}

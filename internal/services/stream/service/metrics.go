package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// connsGauge tracks live registered connections.
	connsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stream_connections",
		Help: "Live stream connections",
	})

	// deliveredTotal counts frames pushed to connections, gap frames included.
	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_delivered_total",
		Help: "Frames delivered to stream connections",
	})

	// shedTotal counts events dropped from full pending rings.
	shedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stream_shed_total",
		Help: "Events shed from full per-connection rings",
	})
)

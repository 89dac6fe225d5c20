package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convosync_store_messages_appended_total",
		Help: "Messages durably appended to conversations.",
	})
	pagesListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convosync_store_pages_listed_total",
		Help: "History pages served by the store.",
	})
	readMarksSet = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convosync_store_read_markers_total",
		Help: "Read markers written.",
	})
	messagesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convosync_store_messages_purged_total",
		Help: "Messages removed by the retention runner.",
	})
)

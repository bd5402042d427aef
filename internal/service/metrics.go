package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tasksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total tasks created",
		},
	)
	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_status_transitions_total",
			Help: "Total accepted task status transitions",
		},
		[]string{"from", "to"},
	)
	taskErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_operation_errors_total",
			Help: "Total rejected task operations by error kind",
		},
		[]string{"op", "code"},
	)
	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(tasksCreated)
	prometheus.MustRegister(statusTransitions)
	prometheus.MustRegister(taskErrors)
	prometheus.MustRegister(authAttempts)
}

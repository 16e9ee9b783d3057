// Package domain defines the counter reconciliation ports
package domain

import "context"

// WorkerPort runs the reconciliation loop. Sweep does one full pass over the
// shot keyspace and reports how many rows it repaired
type WorkerPort interface {
	Run(ctx context.Context) error
	Sweep(ctx context.Context) (int, error)
}

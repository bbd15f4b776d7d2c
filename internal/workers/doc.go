/*
Package workers sizes worker pools from GOMAXPROCS rather than
runtime.NumCPU, so a pod limited to 2 CPUs on a 64-core node gets 2-4
workers instead of 64-128.

Fingerprinting is dominated by disk reads and uses the I/O multiplier:

	n := workers.Resolve(cfg.HashWorkers, 16, workers.ForIO)

A positive HASH_WORKERS setting overrides the automatic count.
*/
package workers

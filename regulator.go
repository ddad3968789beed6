package qsim

/*
Regulator gates admission of work to the pool. Before a job is queued the pool
lets every regulator Observe the current metrics; while any of them reports
Limit, the job waits and the regulators are given a chance to Renormalize.
*/
type Regulator interface {
	// Observe updates the regulator's view of the pool.
	Observe(metrics *Metrics)

	// Limit reports whether new work should wait.
	Limit() bool

	// Renormalize is called between waits while admission is limited.
	Renormalize()
}

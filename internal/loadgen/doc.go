// Package loadgen provides a load generator for exercising the server.
//
// A Client issues a fixed number of GET requests against a target address
// from a worker pool and records per-request latency and outcome into a
// metrics.Metrics.
//
// # Basic Usage
//
//	c, err := loadgen.New("127.0.0.1:7878", loadgen.DefaultConfig())
//	if err != nil {
//	    // invalid config
//	}
//	snap, err := c.Run(ctx)
//	fmt.Println(snap.Report())
//
// A Client is single-use: Run shuts its pool down before returning.
package loadgen

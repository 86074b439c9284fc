// Package server provides a TCP server that hands connections to a worker pool.
//
// The server binds a listener, accepts connections, and submits each
// connection's handling to a fixed-size pool.ThreadPool as a single job.
// A connection whose request line starts with "GET / HTTP/1.1" is answered
// with hello.html from the document root; anything else gets 404.html.
// This is deliberately not a full HTTP implementation.
//
// # Basic Usage
//
//	srv, err := server.New(server.DefaultConfig(), nil)
//	if err != nil {
//	    // invalid config (e.g. zero workers)
//	}
//	err = srv.Start(ctx) // blocks until ctx is cancelled
//
// # Shutdown
//
// Cancelling the context closes the listener, then shuts the pool down in
// two phases; Start returns after every worker has been joined.
package server

// Package statsview runs a local HTTP server with runtime statistics of the
// emulator process: heap, GC pauses and goroutines, charted live, plus the
// standard pprof endpoints under /debug/pprof/. Useful for checking that the
// frame loop does not allocate.
package statsview

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"

// Server is a running stats viewer.
type Server struct {
	mgr  *statsview.ViewManager
	addr string
}

// Launch starts the viewer on addr in a new goroutine and prints where it
// can be reached to output.
func Launch(addr string, output io.Writer) *Server {
	if addr == "" {
		addr = DefaultAddress
	}

	viewer.SetConfiguration(viewer.WithAddr(addr))
	s := &Server{mgr: statsview.New(), addr: addr}
	go s.mgr.Start()

	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
	slog.Debug("Stats viewer started", "addr", addr)
	return s
}

// Stop shuts the viewer down.
func (s *Server) Stop() {
	s.mgr.Stop()
}

// URL returns the address of the charts page for a server listening on addr.
func URL(addr string) string {
	return "http://" + addr + path
}

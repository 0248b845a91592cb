package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"
)

// portEnvKey is the environment variable that PortFromEnv reads, optionally
// loaded from a .env file.
const portEnvKey = "SIGTRACE_MONITOR_PORT"

// A Server turns a TraceMonitor into a small web service.
type Server struct {
	monitor    *TraceMonitor
	portNumber int
	listener   net.Listener
}

// NewServer creates a server over the given monitor.
func NewServer(m *TraceMonitor) *Server {
	return &Server{monitor: m}
}

// WithPortNumber sets the port the server listens on. Ports below 1000 are
// rejected and replaced with a random port.
func (s *Server) WithPortNumber(portNumber int) *Server {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the trace monitor, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	s.portNumber = portNumber

	return s
}

// StartServer starts serving in the background and prints the URL to stderr.
func (s *Server) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/lines", s.listLines)
	r.HandleFunc("/api/status", s.status)

	actualPort := ":0"
	if s.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	s.listener = listener

	fmt.Fprintf(os.Stderr,
		"Monitoring dispatch traces at http://localhost:%d\n", s.Port())

	go func() {
		dieOnErr(http.Serve(listener, r))
	}()
}

// Port returns the port the server is listening on. The server must have
// been started.
func (s *Server) Port() int {
	if s.listener == nil {
		panic("server is not started")
	}

	return s.listener.Addr().(*net.TCPAddr).Port
}

// OpenBrowser opens the system browser on the server's URL.
func (s *Server) OpenBrowser() {
	url := fmt.Sprintf("http://localhost:%d/api/lines", s.Port())
	dieOnErr(browser.OpenURL(url))
}

func (s *Server) listLines(w http.ResponseWriter, _ *http.Request) {
	rsp := struct {
		Lines []string `json:"lines"`
	}{
		Lines: s.monitor.Lines(),
	}

	writeJSON(w, rsp)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	rsp := struct {
		Total  uint64 `json:"total"`
		Window int    `json:"window"`
	}{
		Total:  s.monitor.TotalLines(),
		Window: len(s.monitor.Lines()),
	}

	writeJSON(w, rsp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	dieOnErr(json.NewEncoder(w).Encode(v))
}

// PortFromEnv reads the monitor port from the environment, loading a .env
// file first when one exists. It returns 0 when unset or unparsable.
func PortFromEnv() int {
	_ = godotenv.Load()

	port, err := strconv.Atoi(os.Getenv(portEnvKey))
	if err != nil {
		return 0
	}

	return port
}

func dieOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

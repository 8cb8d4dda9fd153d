// Command blockbingo starts the Block Bingo planning server.
//
// The default "server" mode serves the REST API, the /ws plan feed and an
// /mcp endpoint over HTTP, optionally tunnelled through ngrok. The
// "stdio-mcp" mode speaks MCP on stdin/stdout and talks to a running API on
// localhost:8080, or to one it starts on a loopback port.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/blockbingo/api"
	"github.com/wricardo/blockbingo/game/config"
	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/game/session"
	"github.com/wricardo/blockbingo/logging"
	"github.com/wricardo/blockbingo/transport/mcp"
	"github.com/wricardo/blockbingo/transport/websocket"
)

var log = logging.MustGetLogger("main")

const (
	Version = "1.0.0"
	AppName = "Block Bingo Planner"
)

var (
	port         = flag.Int("port", 8080, "port to listen on")
	host         = flag.String("host", "localhost", "interface to listen on")
	configDir    = flag.String("config-dir", envDefault("CONFIG_DIR", "courses"), "Directory containing course files")
	sessionsDir  = flag.String("sessions-dir", envDefault("SESSIONS_DIR", "sessions"), "Directory for persisted sessions")
	historyDB    = flag.String("history-db", envDefault("HISTORY_DB", "data/history.db"), "SQLite plan history database (empty disables)")
	journalDir   = flag.String("journal-dir", envDefault("JOURNAL_DIR", "data/journal"), "Plan journal directory (empty disables)")
	logLevel     = flag.String("log-level", envDefault("LOG_LEVEL", "info"), "Log level (debug, info, warning, error)")
	debug        = flag.Bool("debug", false, "Shorthand for -log-level debug")
	version      = flag.Bool("version", false, "Print the version and exit")
	ngrokEnabled = flag.Bool("ngrok", false, "Also serve through an ngrok tunnel (or NGROK_ENABLED=1)")
	ngrokAuth    = flag.String("ngrok-auth", "", "ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Reserved ngrok domain (or NGROK_DOMAIN)")
)

// envDefault returns the environment variable key, or def when it is unset
func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envFlags maps flags to the variables that set them, so values from .env
// apply too. Command line flags still win.
var envFlags = map[string]string{
	"config-dir":   "CONFIG_DIR",
	"sessions-dir": "SESSIONS_DIR",
	"history-db":   "HISTORY_DB",
	"journal-dir":  "JOURNAL_DIR",
	"log-level":    "LOG_LEVEL",
}

// applyEnv sets flags from the environment; call it before flag.Parse
func applyEnv() {
	for name, key := range envFlags {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			flag.Set(name, v)
		}
	}
}

// firstSet returns the first non-empty value
func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var modes = [][2]string{
	{"server, http", "REST API, /ws plan feed and /mcp over HTTP (default)"},
	{"stdio-mcp, mcp-stdio, mcp", "MCP on stdin/stdout, backed by a local API"},
}

func init() {
	flag.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "%s v%s\n\nUsage: %s [flags] [mode]\n\nModes:\n", AppName, Version, os.Args[0])
		for _, m := range modes {
			fmt.Fprintf(w, "  %-28s %s\n", m[0], m[1])
		}
		fmt.Fprintln(w, "\nFlags:")
		flag.PrintDefaults()
	}
}

// services holds the wired plan service and the stores it writes to
type services struct {
	plans    service.PlanService
	sessions *session.Manager
	history  *session.HistoryStore
	journal  *session.Journal
}

// Close flushes the journal and closes the history database
func (s *services) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Warningf("failed to close journal: %v", err)
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Warningf("failed to close history store: %v", err)
		}
	}
}

func main() {
	envErr := godotenv.Load()
	applyEnv()
	flag.Parse()

	if *version {
		fmt.Println(AppName, "v"+Version)
		return
	}

	level := *logLevel
	if *debug {
		level = "debug"
	}
	logging.Setup(level)

	if envErr == nil {
		log.Info("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.Warningf("Error loading .env file: %v", envErr)
	}

	mode := firstSet(flag.Arg(0), "server")

	log.Infof("Starting %s v%s (mode: %s)", AppName, Version, mode)

	var run func(*services)
	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		run = func(svc *services) { runStdioMCPWithInternalServer(svc.plans) }
	case "server", "http":
		run = runHTTPServer
	default:
		flag.Usage()
		os.Exit(2)
	}

	svc, err := initializeServices()
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer svc.Close()
	run(svc)
}

// maxMCPBody caps one JSON-RPC request on /mcp
const maxMCPBody = 1 << 20

// newRouter mounts the API at / and the MCP JSON-RPC endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "use POST", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		msg, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMCPBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reply := mcpClient.GetMCPServer().HandleMessage(r.Context(), msg)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reply); err != nil {
			log.Warningf("mcp: failed to write reply: %v", err)
		}
	})
	return mux
}

// runHTTPServer serves the router until SIGINT or SIGTERM, then drains
// connections and saves every session.
func runHTTPServer(svc *services) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	addr := net.JoinHostPort(*host, fmt.Sprint(*port))
	router := newRouter(api.NewServer(svc.plans, hub), mcp.NewClient("http://"+addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupRoutine(ctx, svc.sessions)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Listening on http://%s (api /api, feed /ws?session=<id>, mcp /mcp)", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if *ngrokEnabled || os.Getenv("NGROK_ENABLED") == "true" || os.Getenv("NGROK_ENABLED") == "1" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, router)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down")

	drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(drain); err != nil {
		log.Errorf("HTTP shutdown: %v", err)
	}
	if err := svc.sessions.SaveAllSessions(); err != nil {
		log.Warningf("Failed to save sessions: %v", err)
	}

	wg.Wait()
	log.Info("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	token := firstSet(*ngrokAuth, os.Getenv("NGROK_AUTHTOKEN"), os.Getenv("NGROK_AUTH_TOKEN"))
	if token == "" {
		log.Warning("ngrok requested without an auth token; set -ngrok-auth or NGROK_AUTHTOKEN")
		return
	}

	endpoint := ngrokConfig.HTTPEndpoint()
	if domain := firstSet(*ngrokDomain, os.Getenv("NGROK_DOMAIN")); domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	}

	listener, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(token))
	if err != nil {
		log.Errorf("ngrok: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.Infof("ngrok tunnel up at %s", listener.URL())
	if err := http.Serve(listener, handler); err != nil && ctx.Err() == nil {
		log.Errorf("ngrok: %v", err)
	}
	log.Info("ngrok tunnel closed")
}

// initializeServices wires the course and session managers, the plan history
// store and the journal into the plan service.
func initializeServices() (*services, error) {
	courseManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create course manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(*sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warningf("Failed to load persisted sessions: %v", err)
	}

	svc := &services{sessions: sessionManager}
	var opts []service.Option

	if *historyDB != "" {
		history, err := session.OpenHistoryStore(*historyDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		svc.history = history
		opts = append(opts, service.WithHistoryStore(history))
		log.Infof("Plan history: %s", *historyDB)
	}

	if *journalDir != "" {
		svc.journal = session.NewJournal(*journalDir, "plans")
		opts = append(opts, service.WithJournal(svc.journal))
		log.Infof("Plan journal: %s", *journalDir)
	}

	svc.plans = service.NewPlanService(sessionManager, courseManager, opts...)
	return svc, nil
}

// sessionCleanupRoutine evicts sessions idle for a day and drops sessions
// whose file was deleted from the sessions directory.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	evict := time.NewTicker(time.Hour)
	defer evict.Stop()
	prune := time.NewTicker(5 * time.Second)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-evict.C:
			if n := manager.EvictIdle(24 * time.Hour); n > 0 {
				log.Infof("Evicted %d idle sessions", n)
			}
		case <-prune.C:
			if n := manager.SyncWithStorage(); n > 0 {
				log.Infof("Dropped %d sessions removed from storage", n)
			}
		}
	}
}

// externalAPI is where stdio mode looks for an already running server
const externalAPI = "http://localhost:8080"

// apiReachable reports whether an API answers /health at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// startInternalAPI serves the API on a random loopback port. The returned
// func stops it.
func startInternalAPI(planService service.PlanService) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	hub := websocket.NewHub()
	go hub.Run()
	srv := &http.Server{Handler: api.NewServer(planService, hub)}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("internal API: %v", err)
		}
	}()

	return "http://" + listener.Addr().String(), func() {
		srv.Close()
		hub.Stop()
	}, nil
}

// runStdioMCPWithInternalServer speaks MCP over stdio against the API on
// localhost:8080, or against an internal one when nothing answers there.
func runStdioMCPWithInternalServer(planService service.PlanService) {
	baseURL := externalAPI
	if !apiReachable(externalAPI) {
		url, shutdown, err := startInternalAPI(planService)
		if err != nil {
			log.Fatalf("Failed to start internal API: %v", err)
		}
		defer shutdown()
		baseURL = url
	}

	log.Infof("MCP stdio server ready (API at %s)", baseURL)
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

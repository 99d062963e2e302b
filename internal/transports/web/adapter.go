package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"deskshell/internal/core"
)

type contextKey string

const ctxRequestID contextKey = "request_id"

// Config определяет параметры HTTP-транспорта.
type Config struct {
	ListenAddr         string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	RequestTimeout     time.Duration
	MaxRequestBody     int64
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	// RateLimit - вызовов с одного адреса за RateWindow; 0 отключает.
	RateLimit  int
	RateWindow time.Duration
}

// Adapter принимает вызовы команд от web-view по HTTP.
type Adapter struct {
	registry *core.Registry
	logger   *slog.Logger
	cfg      Config

	corsOrigins map[string]struct{}
	limiter     *rateLimiter

	mu      sync.Mutex
	server  *http.Server
	addr    string
	stopped chan struct{}
}

// NewAdapter создает web transport.
func NewAdapter(registry *core.Registry, logger *slog.Logger, cfg Config) *Adapter {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:1420"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 8 * time.Second
	}
	if cfg.MaxRequestBody <= 0 {
		cfg.MaxRequestBody = 8 << 20
	}
	if len(cfg.CORSAllowedMethods) == 0 {
		cfg.CORSAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.CORSAllowedHeaders) == 0 {
		cfg.CORSAllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	corsOrigins := make(map[string]struct{}, len(cfg.CORSAllowedOrigins))
	for _, origin := range cfg.CORSAllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		corsOrigins[trimmed] = struct{}{}
	}

	a := &Adapter{
		registry:    registry,
		logger:      logger.With("component", "web"),
		cfg:         cfg,
		corsOrigins: corsOrigins,
	}
	if cfg.RateLimit > 0 {
		a.limiter = newRateLimiter(cfg.RateLimit, cfg.RateWindow)
	}
	return a
}

func (a *Adapter) Name() string { return "web" }

// Addr возвращает фактический адрес после Start.
func (a *Adapter) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Start слушает адрес и обслуживает запросы в фоне до отмены контекста.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.server != nil {
		a.mu.Unlock()
		return errors.New("web transport already started")
	}
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	srv := &http.Server{
		Handler:      a.routes(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}
	stopped := make(chan struct{})
	a.server = srv
	a.addr = ln.Addr().String()
	a.stopped = stopped
	a.mu.Unlock()

	a.logger.Info("web transport listening", "addr", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		_ = a.Stop(stopCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("web transport stopped", "err", err)
		}
	}()
	return nil
}

// Stop завершает HTTP server.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	stopped := a.stopped
	a.server = nil
	a.stopped = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	close(stopped)
	return srv.Shutdown(ctx)
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (a *Adapter) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /v1/health", http.HandlerFunc(a.handleHealth))
	mux.Handle("GET /v1/commands", http.HandlerFunc(a.handleCommands))
	mux.Handle("POST /v1/invoke/{command}", chain(http.HandlerFunc(a.handleInvoke),
		a.rateLimitMiddleware(),
		a.timeoutMiddleware(),
		a.maxBodyMiddleware(),
	))

	return chain(mux, a.requestIDMiddleware(), a.corsMiddleware())
}

func (a *Adapter) requestIDMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := sanitizeRequestID(r.Header.Get("X-Request-ID"))
			if requestID == "" {
				requestID = newRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := context.WithValue(r.Context(), ctxRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Adapter) corsMiddleware() middleware {
	allowMethods := strings.Join(a.cfg.CORSAllowedMethods, ", ")
	allowHeaders := strings.Join(a.cfg.CORSAllowedHeaders, ", ")

	isMethodAllowed := func(method string) bool {
		for _, m := range a.cfg.CORSAllowedMethods {
			if strings.EqualFold(strings.TrimSpace(m), method) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := a.corsOrigins[origin]; !ok {
				writeError(w, r, http.StatusForbidden, "cors_denied", "")
				return
			}

			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

			if r.Method == http.MethodOptions {
				preflightMethod := strings.TrimSpace(r.Header.Get("Access-Control-Request-Method"))
				if preflightMethod != "" && !isMethodAllowed(preflightMethod) {
					writeError(w, r, http.StatusForbidden, "cors_method_denied", "")
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *Adapter) timeoutMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), a.cfg.RequestTimeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Adapter) maxBodyMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxRequestBody)
			next.ServeHTTP(w, r)
		})
	}
}

func sanitizeRequestID(v string) string {
	id := strings.TrimSpace(v)
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, ch := range id {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		switch ch {
		case '-', '_', '.', ':':
			continue
		default:
			return ""
		}
	}
	return id
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Adapter) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": requestIDFromContext(r.Context()),
		"items":      a.registry.Commands(),
	})
}

func (a *Adapter) handleInvoke(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())
	command := r.PathValue("command")
	lg := a.logger.With("request_id", requestID, "command", command)

	if !a.registry.Has(command) {
		writeError(w, r, http.StatusNotFound, core.CodeCommandNotFound, "unknown command "+command)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_body", "")
		return
	}
	args, err := core.ParseArgs(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	resp, err := a.registry.Execute(r.Context(), command, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			lg.Warn("invoke timed out")
			writeError(w, r, http.StatusGatewayTimeout, "request_timeout", "")
			return
		}
		writeJSON(w, r, statusFor(resp.ErrorCode), invokeBody(requestID, resp))
		return
	}
	lg.Debug("invoke ok", "invocation_id", resp.InvocationID)
	writeJSON(w, r, http.StatusOK, invokeBody(requestID, resp))
}

func statusFor(code string) int {
	switch code {
	case core.CodeInvalidArguments:
		return http.StatusBadRequest
	case core.CodeCommandNotFound:
		return http.StatusNotFound
	case string(core.KindIO), string(core.KindParse), string(core.KindDeliberate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func invokeBody(requestID string, resp core.Response) map[string]interface{} {
	body := map[string]interface{}{
		"request_id":    requestID,
		"invocation_id": resp.InvocationID,
		"status":        resp.Status,
		"data":          resp.Data,
	}
	if resp.Status == core.StatusError {
		body["error_code"] = resp.ErrorCode
		body["message"] = resp.Message
	}
	return body
}

func requestIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxRequestID).(string)
	if !ok || v == "" {
		return newRequestID()
	}
	return v
}

func newRequestID() string {
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	if message == "" {
		message = errorMessage(code)
	}
	writeJSON(w, r, statusCode, map[string]string{
		"request_id": requestIDFromContext(r.Context()),
		"status":     core.StatusError,
		"error_code": code,
		"message":    message,
	})
}

func errorMessage(code string) string {
	switch code {
	case "payload_too_large":
		return "request payload is too large"
	case "request_timeout":
		return "request timeout"
	case "cors_denied", "cors_method_denied":
		return "cors policy denied request"
	default:
		return code
	}
}

// writeJSON кодирует тело до WriteHeader: ошибка кодирования превращается в 500.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	requestID := requestIDFromContext(r.Context())
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		statusCode = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{
			"request_id": requestID,
			"status":     core.StatusError,
			"error_code": core.CodeInternal,
			"message":    "encode response: " + err.Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

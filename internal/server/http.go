package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/knoguchi/editorialbot/internal/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// HTTPServer wraps an HTTP server with grpc-gateway integration
type HTTPServer struct {
	server      *http.Server
	router      *chi.Mux
	gwMux       *runtime.ServeMux
	logger      *slog.Logger
	port        int
	grpcAddr    string
	dialOptions []grpc.DialOption
	grpcConn    *grpc.ClientConn
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	GRPCAddr       string // Address of the gRPC server (e.g., "localhost:9090")
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// DialOptions are appended to the gateway's gRPC client options.
	DialOptions []grpc.DialOption
}

// NewHTTPServer creates a new HTTP server with grpc-gateway
func NewHTTPServer(cfg HTTPServerConfig) (*HTTPServer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Create chi router
	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	// Create grpc-gateway mux with JSON marshaler options
	gwMux := runtime.NewServeMux(
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions: protojson.MarshalOptions{
				UseProtoNames:   true,
				EmitUnpopulated: true,
			},
			UnmarshalOptions: protojson.UnmarshalOptions{
				DiscardUnknown: true,
			},
		}),
		runtime.WithIncomingHeaderMatcher(headerMatcher),
	)

	// Mount health check endpoint
	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", readinessCheckHandler(cfg.Ready))

	// Mount grpc-gateway under root
	router.Mount("/", gwMux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // completion calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	return &HTTPServer{
		server:      server,
		router:      router,
		gwMux:       gwMux,
		logger:      logger,
		port:        cfg.Port,
		grpcAddr:    cfg.GRPCAddr,
		dialOptions: cfg.DialOptions,
	}, nil
}

// RegisterHandlers connects to the gRPC server and routes the REST endpoints
// to it
func (s *HTTPServer) RegisterHandlers(ctx context.Context) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, s.dialOptions...)

	// Connect to gRPC server
	conn, err := grpc.NewClient(s.grpcAddr, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	s.grpcConn = conn

	routes := []struct {
		method, pattern, rpc string
		decode               requestDecoder
	}{
		{http.MethodPost, "/v1/ask", AskMethod, decodeBody},
		{http.MethodGet, "/v1/editorials:retrieve", RetrieveMethod, decodeQuery},
		{http.MethodPost, "/v1/editorials:retrieve", RetrieveMethod, decodeBody},
	}
	for _, rt := range routes {
		if err := s.gwMux.HandlePath(rt.method, rt.pattern, s.forward(conn, rt.rpc, rt.pattern, rt.decode)); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	s.logger.Info("registered EditorialService HTTP handlers")

	return nil
}

// requestDecoder builds the RPC request message from an HTTP request.
type requestDecoder func(r *http.Request, m runtime.Marshaler) (*structpb.Struct, error)

// forward returns a gateway handler that invokes rpc on conn and writes the
// reply, mapping gRPC status codes onto HTTP ones.
func (s *HTTPServer) forward(conn *grpc.ClientConn, rpc, pattern string, decode requestDecoder) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		inbound, outbound := runtime.MarshalerForRequest(s.gwMux, r)

		annotated, err := runtime.AnnotateContext(ctx, s.gwMux, r, rpc, runtime.WithHTTPPathPattern(pattern))
		if err != nil {
			runtime.HTTPError(ctx, s.gwMux, outbound, w, r, err)
			return
		}

		in, err := decode(r, inbound)
		if err != nil {
			runtime.HTTPError(annotated, s.gwMux, outbound, w, r, status.Errorf(codes.InvalidArgument, "%v", err))
			return
		}

		out := new(structpb.Struct)
		if err := conn.Invoke(annotated, rpc, in, out); err != nil {
			runtime.HTTPError(annotated, s.gwMux, outbound, w, r, err)
			return
		}
		runtime.ForwardResponseMessage(annotated, s.gwMux, outbound, w, r, out)
	}
}

func decodeBody(r *http.Request, m runtime.Marshaler) (*structpb.Struct, error) {
	in := new(structpb.Struct)
	if err := m.NewDecoder(r.Body).Decode(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return in, nil
}

func decodeQuery(r *http.Request, _ runtime.Marshaler) (*structpb.Struct, error) {
	q := r.URL.Query()
	fields := map[string]interface{}{"question": q.Get("question")}
	if v := q.Get("top_k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("top_k must be an integer")
		}
		fields["top_k"] = k
	}
	return structpb.NewStruct(fields)
}

// headerMatcher forwards the API key header along with the gateway defaults.
func headerMatcher(key string) (string, bool) {
	if strings.EqualFold(key, auth.APIKeyHeader) {
		return auth.APIKeyHeader, true
	}
	return runtime.DefaultHeaderMatcher(key)
}

// Handler returns the root HTTP handler
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close gRPC connection if exists
	if s.grpcConn != nil {
		if err := s.grpcConn.Close(); err != nil {
			s.logger.Warn("error closing gRPC connection", "error", err)
		}
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token, X-Request-ID, X-API-Key")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

// readinessCheckHandler returns a handler for the /readyz endpoint
func readinessCheckHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
	}
}

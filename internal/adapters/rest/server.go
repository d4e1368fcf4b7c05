package rest

import (
	"context"
	"net/http"
	"time"

	core_port "listing-ingest-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewRouter собирает маршруты отдельно от http.Server, чтобы их можно было проверять через httptest
func NewRouter(
	importHandlers *ImportHandler,
	mergeHandlers *MergeHandler,
	failedRecordsHandlers *FailedRecordsHandler,
	baseLogger core_port.LoggerPort,
) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware(baseLogger), middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports/csv", importHandlers.ImportCSV)
		r.Post("/imports/json", importHandlers.ImportJSON)
		r.Get("/imports/failures/{fileID}", importHandlers.DownloadFailureFile)
		r.Post("/listings", importHandlers.ImportRecord)

		r.Post("/communities/merge", mergeHandlers.Merge)

		r.Get("/failed-records", failedRecordsHandlers.ListUnhandled)
		r.Post("/failed-records/{id}/handled", failedRecordsHandlers.MarkHandled)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func NewServer(port string, handler http.Handler, baseLogger core_port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", core_port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}

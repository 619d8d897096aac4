// Command service exposes the Validator Registry and (optionally) the
// durable aggregate Store over HTTP, adapted from the teacher's gin
// validation microservice: the router shape (gin.Default, JSON bind,
// JSON response) is kept, but the handlers now run this system's own
// credential validators instead of certificate/private-key PEM
// parsing, which belonged to the teacher's unrelated TLS-material
// checker rather than this spec's issuer-API validation.
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"keyhunter/pkg/config"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
	"keyhunter/pkg/report"
	"keyhunter/pkg/store"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

type server struct {
	cfg        *config.Config
	validators *validate.Registry
	gates      *tokenpool.Registry
	http       *httpclient.Client
	store      *store.Store
	logger     *log.Logger
}

func (s *server) routes() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/validators", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"validators": s.validators.Names()})
	})

	r.POST("/validate/secret", s.handleValidate)

	if s.store != nil {
		r.GET("/findings", s.handleFindings)
	}

	return r
}

// handleValidate runs one Validator call synchronously, pacing it
// through the same per-key_type Rate Limiter gate the Discovery
// Pipeline uses, so a burst of HTTP callers can never exceed a
// validator's configured rate budget just because they arrived
// out-of-process rather than from a pipeline worker.
func (s *server) handleValidate(c *gin.Context) {
	var req models.ValidationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ValidationResponse{
			IsValid: false,
			Message: "invalid request body",
		})
		return
	}

	validator, ok := s.validators.Get(req.Secret.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ValidationResponse{
			IsValid: false,
			Message: "unsupported key_type: " + req.Secret.Type,
		})
		return
	}

	gate := s.gates.Get(req.Secret.Type, validator.DefaultRateLimit())
	if err := gate.Acquire(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ValidationResponse{
			IsValid: false,
			Message: "cancelled while waiting for rate limiter",
		})
		return
	}

	result, err := validator.Validate(c.Request.Context(), s.http, req.Secret.Value)
	if err != nil {
		s.logger.Printf("validate/secret: %s: %v", req.Secret.Type, err)
		c.JSON(http.StatusBadGateway, models.ValidationResponse{
			IsValid: false,
			Message: err.Error(),
		})
		return
	}

	if result.Valid && s.store != nil {
		finding := models.Finding{
			Detected: models.DetectedKey{
				Key: req.Secret.Value, KeyType: req.Secret.Type, FilePath: req.Secret.FilePath,
			},
			Validation:  result,
			ValidatedAt: time.Now().UTC(),
		}
		if err := s.store.RecordFinding(c.Request.Context(), finding); err != nil {
			s.logger.Printf("validate/secret: recording finding: %v", err)
		}
	}

	c.JSON(http.StatusOK, models.ValidationResponse{
		IsValid: result.Valid,
		Message: result.Message,
	})
}

// handleFindings returns the durable Store's per-repository aggregate,
// for operators who backed this service with Postgres instead of
// (or in addition to) file-based Results Sink output.
func (s *server) handleFindings(c *gin.Context) {
	aggregates, err := s.store.RepositoryAggregates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"repositories": aggregates})
}

func main() {
	logger := log.New(os.Stdout, "[keyhunter-service] ", log.LstdFlags)

	cfgPath := os.Getenv("KEYHUNTER_CONFIG")
	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	validators := validate.NewDefaultRegistry(cfg.Validators)
	gates := tokenpool.NewRegistry()
	httpClient := httpclient.New(30 * time.Second)

	srv := &server{
		cfg:        cfg,
		validators: validators,
		gates:      gates,
		http:       httpClient,
		logger:     logger,
	}

	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		s, err := store.New(dbHost, os.Getenv("DB_PORT"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))
		if err != nil {
			logger.Printf("warning: durable store unavailable: %v", err)
		} else {
			srv.store = s
			logger.Println("durable Postgres store enabled")
		}
	}

	// /report (offline) still works straight off the Results Sink's
	// output directory regardless of whether a durable store is
	// configured, since report.LoadAndAggregate reads the JSON files
	// directly.
	if _, err := report.LoadAndAggregate(cfg.Output.Directory); err != nil {
		logger.Printf("warning: results directory %s not yet readable: %v", cfg.Output.Directory, err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Printf("starting validation service on port %s", port)
	if err := srv.routes().Run(":" + port); err != nil {
		logger.Fatalf("service exited: %v", err)
	}
}

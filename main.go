package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"cite-ledger/config"
	"cite-ledger/services"
	"cite-ledger/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	citationsCounter prometheus.Counter
	mentionsCounter  prometheus.Counter
)

func init() {
	citationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citations_added_total",
			Help: "Total number of distinct citations added to the ledger.",
		},
	)
	mentionsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citation_mentions_total",
			Help: "Total number of citation mentions recorded.",
		},
	)
	prometheus.MustRegister(citationsCounter, mentionsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ledger, err := services.NewLedger(cfg.DBPath, logging)
	if err != nil {
		logging.Fatal("Failed to open ledger database", zap.Error(err))
	}
	defer ledger.Close()
	logging.Info("Ledger database ready", zap.String("path", cfg.DBPath))

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupCiteRoutes(router, ledger, logging)
	setupDumpRoutes(router, ledger, logging)
	setupStatsRoutes(router, ledger, logging)
	setupBibliographyRoutes(router, logging)
	setupCodecRoutes(router, logging)

	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.DumpCron, func() {
		runScheduledDump(cfg, ledger, logging)
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// respondLedgerError maps the service error kinds onto HTTP statuses.
func respondLedgerError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, services.ErrTypeMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnsupportedFormat):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	default:
		log.Error("Ledger operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func setupCiteRoutes(router *gin.Engine, ledger *services.Ledger, log *zap.Logger) {
	rg := router.Group("/cite")

	rg.POST("/", func(c *gin.Context) {
		var req services.CiteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		before, err := ledger.TotalCitations(0, "")
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}

		referenceID, err := ledger.Cite(req)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}

		mentionsCounter.Inc()
		after, err := ledger.TotalCitations(0, "")
		if err == nil && after > before {
			citationsCounter.Add(float64(after - before))
		}

		c.JSON(http.StatusOK, gin.H{"reference_id": referenceID})
	})
}

func setupDumpRoutes(router *gin.Engine, ledger *services.Ledger, log *zap.Logger) {
	rg := router.Group("/dump")

	rg.GET("/", func(c *gin.Context) {
		opts := services.DumpOptions{Format: c.Query("fmt")}
		if raw := c.Query("level"); raw != "" {
			level, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "level must be an integer"})
				return
			}
			opts.Level = &level
		}
		rows, err := ledger.Dump(opts)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	// Body-driven variant; the outfile option only exists here because a
	// query parameter should not make the server write files.
	rg.POST("/query", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		var opts services.DumpOptions
		if v, ok := body["outfile"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				respondLedgerError(c, log, services.ErrTypeMismatch)
				return
			}
			opts.Outfile = s
		}
		if v, ok := body["fmt"]; ok && v != nil {
			s, ok := v.(string)
			if !ok {
				respondLedgerError(c, log, services.ErrTypeMismatch)
				return
			}
			opts.Format = s
		}
		if v, ok := body["level"]; ok && v != nil {
			f, ok := v.(float64)
			if !ok {
				respondLedgerError(c, log, services.ErrTypeMismatch)
				return
			}
			level := int(f)
			opts.Level = &level
		}

		rows, err := ledger.Dump(opts)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}

func setupStatsRoutes(router *gin.Engine, ledger *services.Ledger, log *zap.Logger) {
	rg := router.Group("/stats")

	selector := func(c *gin.Context) (uint, string, bool) {
		alias := c.Query("alias")
		var referenceID uint
		if raw := c.Query("reference_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reference_id must be an integer"})
				return 0, "", false
			}
			referenceID = uint(id)
		}
		return referenceID, alias, true
	}

	rg.GET("/citations", func(c *gin.Context) {
		referenceID, alias, ok := selector(c)
		if !ok {
			return
		}
		n, err := ledger.TotalCitations(referenceID, alias)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total_citations": n})
	})

	rg.GET("/mentions", func(c *gin.Context) {
		referenceID, alias, ok := selector(c)
		if !ok {
			return
		}
		n, err := ledger.TotalMentions(referenceID, alias)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total_mentions": n})
	})

	rg.GET("/contexts", func(c *gin.Context) {
		referenceID, alias, ok := selector(c)
		if !ok {
			return
		}
		n, err := ledger.TotalContexts(referenceID, alias)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total_contexts": n})
	})
}

func setupBibliographyRoutes(router *gin.Engine, log *zap.Logger) {
	rg := router.Group("/bibliography")

	rg.POST("/load", func(c *gin.Context) {
		var req struct {
			Bibfile string `json:"bibfile"`
			Format  string `json:"format"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		entries, err := services.LoadBibliography(req.Bibfile, req.Format)
		if err != nil {
			respondLedgerError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
	})
}

// setupCodecRoutes exposes the text codec so other tools can normalize
// bibliographic strings without linking the service.
func setupCodecRoutes(router *gin.Engine, log *zap.Logger) {
	rg := router.Group("/codec")

	rg.POST("/decode", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
			Math bool   `json:"math"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		decoded := services.DecodeLaTeX(req.Text)
		if req.Math {
			decoded = services.DecodeMathSymbols(decoded)
		}
		c.JSON(http.StatusOK, gin.H{"text": decoded})
	})

	rg.POST("/encode", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": services.EncodeLaTeX(req.Text)})
	})

	log.Info("Codec routes configured",
		zap.String("base_path", "/codec"),
		zap.Strings("endpoints", []string{"/decode", "/encode"}))
}

// runScheduledDump writes the configured dump file and, when backups are
// enabled, ships it to the object store.
func runScheduledDump(cfg *config.Config, ledger *services.Ledger, log *zap.Logger) {
	log.Info("Running scheduled dump job...")
	level := cfg.DumpLevel
	rows, err := ledger.Dump(services.DumpOptions{
		Outfile: cfg.DumpOutfile,
		Format:  cfg.DumpFormat,
		Level:   &level,
	})
	if err != nil {
		log.Error("Scheduled dump failed", zap.Error(err))
		return
	}
	log.Info("Scheduled dump completed",
		zap.Int("citations", len(rows)),
		zap.String("outfile", cfg.DumpOutfile))

	if !cfg.BackupEnabled {
		return
	}
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		log.Error("S3 client creation failed", zap.Error(err))
		return
	}
	if err := storage.UploadFile(s3Client, cfg.BackupS3Bucket, cfg.DumpOutfile); err != nil {
		log.Error("Dump upload failed", zap.Error(err))
		return
	}
	log.Info("Dump uploaded", zap.String("bucket", cfg.BackupS3Bucket))
}

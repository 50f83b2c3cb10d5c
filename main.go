package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"helpmypet-backend/assistant"
	"helpmypet-backend/config"
	"helpmypet-backend/conn"
	"helpmypet-backend/countries"
	"helpmypet-backend/email"
	"helpmypet-backend/login"
	"helpmypet-backend/migrations"
	"helpmypet-backend/newsletter"
	"helpmypet-backend/openai"
	"helpmypet-backend/sessions"
	"helpmypet-backend/store"
)

func main() {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[main] store: %v", err)
	}
	defer st.Close()

	ai := openai.NewClient(openai.Config{
		APIKey:        cfg.OpenAIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		PrimaryModel:  cfg.PrimaryModel,
		FallbackModel: cfg.FallbackModel,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       cfg.LLMTimeout,
	})
	svc := assistant.NewService(ai, sessions.NewManager(st), cfg.HistoryWindow)
	// two model attempts plus some slack for persistence
	promptHandler := assistant.NewHandler(svc, 2*cfg.LLMTimeout+10*time.Second, cfg.UploadMaxBytes)

	signer := login.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	codes := login.NewResetCodes(cfg.ResetCodeTTL)
	mailer := email.SMTP{Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.SMTPFrom}
	authHandler := login.NewHandler(st, signer, codes, mailer)
	newsletterHandler := newsletter.NewHandler(st, mailer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	codes.StartSweeper(ctx, time.Minute)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors(cfg.CORSOrigins))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	countries.RegisterRoutes(r)
	authHandler.RegisterRoutes(r.Group("/api/auth"))
	newsletterHandler.RegisterRoutes(r.Group("/api"))
	promptHandler.RegisterRoutes(r.Group("/api", signer.Middleware()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("[main] listening on :%s store=%s model=%s fallback=%s", cfg.Port, cfg.DBDriver, cfg.PrimaryModel, cfg.FallbackModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}

// openStore picks the backend from DB_DRIVER and applies migrations for SQL servers.
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.DBDriver == "" || cfg.DBDriver == "leveldb" {
		return store.OpenLevel(cfg.LevelDBPath)
	}
	d, err := store.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("DB_DRIVER: %w", err)
	}
	var (
		db     *sql.DB
		driver string
	)
	switch d {
	case store.MySQL:
		driver = "mysql"
		db, err = conn.NewMySQL(conn.MySQLConfig{User: cfg.DBUser, Password: cfg.DBPassword, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName})
	case store.Postgres:
		driver = "postgres"
		db, err = conn.NewPostgres(cfg.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return store.NewSQLStore(db, d), nil
}

func cors(origins []string) gin.HandlerFunc {
	wildcard := len(origins) == 0
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-Token-Expires-At")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

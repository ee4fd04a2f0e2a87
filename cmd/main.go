// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"map-puzzle/internal/api"
	"map-puzzle/internal/catalog"
	"map-puzzle/internal/config"
	"map-puzzle/internal/eventbus"
	"map-puzzle/internal/funfact"
	"map-puzzle/internal/logger"
	"map-puzzle/internal/middleware"
	"map-puzzle/internal/migrate"
	"map-puzzle/internal/projection"
	"map-puzzle/internal/session"
	"map-puzzle/internal/store"
	"map-puzzle/internal/utils"
	"map-puzzle/internal/version"

	"github.com/minio/minio-go/v7"
)

func main() {
	cfg, err := config.Load()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l.Error("config_load_error", "err", err)
		os.Exit(1)
	}
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)
	l.Debug("config_ui_dir", "dir", cfg.UIDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	db, err := utils.OpenPostgresFromConfig(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	if db == nil {
		l.Info("db_disabled")
	} else {
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	}

	rc := utils.OpenRedisFromConfig(cfg.Redis)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	var oc *minio.Client
	if cfg.Boundary.Source == "object" {
		if oc, err = utils.OpenMinio(cfg.Object); err != nil {
			l.Error("minio_open_error", "err", err)
			os.Exit(1)
		}
	}

	src, err := catalog.NewSource(cfg.Boundary, cfg.Object, catalog.Deps{Redis: rc, Store: st, Object: oc})
	if err != nil {
		l.Error("boundary_source_error", "source", cfg.Boundary.Source, "err", err)
		os.Exit(1)
	}
	l.Info("boundary_source", "source", src.Name())

	engine := projection.NewEngine(cfg.Board.Width, cfg.Board.Height, nil, nil, 0)

	// 文档注释：趣闻提供方注册
	// 背景：未配置密钥时不注册 Gemini，无提供方时服务直接返回缺少密钥的模板文本；外部 HTTP 提供方可选。
	pm := funfact.NewManager(30 * time.Second)
	factTimeout := time.Duration(cfg.FunFact.TimeoutSeconds) * time.Second
	if cfg.FunFact.APIKey != "" {
		pm.Register(funfact.NewGemini(cfg.FunFact.Endpoint, cfg.FunFact.Model, cfg.FunFact.APIKey, factTimeout))
	} else {
		l.Warn("funfact_key_missing")
	}
	if ep := cfg.FunFact.ExtEndpoint; ep != "" {
		pm.Register(funfact.NewHTTP("ext", ep, factTimeout))
	}
	pm.Start(ctx)
	facts := funfact.NewService(pm, rc, time.Duration(cfg.FunFact.CacheTTLSeconds)*time.Second)

	var pub eventbus.Publisher = eventbus.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = eventbus.NewAsync(eventbus.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic), 256, 5*time.Second)
		l.Info("eventbus_kafka", "brokers", strings.Join(cfg.Kafka.Brokers, ","), "topic", cfg.Kafka.Topic)
	}

	s := session.New(engine, catalog.NewHolder(), facts, pub)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.Run(ctx)
	}()
	// 循环退出后再关闭发布端，队列中的事件在 Close 内发布完成
	defer func() {
		<-loopDone
		if err := pub.Close(); err != nil {
			l.Error("eventbus_close_error", "err", err)
		}
	}()
	s.LoadCatalog(ctx, src)

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", api.BuildRoutes(cfg.APIBase, s))
	mux.Handle("/", http.FileServer(http.Dir(cfg.UIDir)))

	// NOTE: 向前端暴露 API 基础路径与指针事件流地址，避免硬编码
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + cfg.APIBase + "'\n"))
		_, _ = w.Write([]byte("window.__WS_PATH__='" + cfg.APIBase + "/ws'\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'"))
	})

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler, cfg.RateLimit)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
	}()

	if cfg.TLS.Enable {
		if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "map-puzzle.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		// 可选：启动HTTP重定向到HTTPS（不改变HTTPS运行端口）
		if cfg.TLS.RedirectEnable {
			go serveRedirect(cfg.TLS.RedirectAddr, cfg.Addr)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLS.CertPath)
		err = srv.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}

// serveRedirect：将明文请求 301 到 HTTPS 服务端口
func serveRedirect(redirAddr, httpsAddr string) {
	l := logger.L()
	httpsPort := strings.TrimPrefix(httpsAddr, ":")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		if httpsPort != "" {
			host = host + ":" + httpsPort
		}
		target := "https://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		l.Debug("http_redirect", "from", r.Host, "to", target)
	})
	l.Info("http_redirect_listening", "addr", redirAddr, "to", "https"+httpsAddr)
	if err := http.ListenAndServe(redirAddr, logger.AccessMiddleware(l)(h)); err != nil {
		l.Error("http_redirect_error", "err", err)
	}
}

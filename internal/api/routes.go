// 包 api：集中注册 HTTP API 路由以解耦主入口
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"map-puzzle/internal/logger"
	"map-puzzle/internal/metrics"
	"map-puzzle/internal/session"

	"github.com/gorilla/mux"
)

// 单个请求等待会话循环的上限
const requestTimeout = 5 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor：会话错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrAlreadyPlaced):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// 文档注释：构建 API 路由，挂载在 base 前缀下
// 约束：/ws 为指针事件流；其余为只读视图与 resize；/metrics 与 /healthz 不经过会话循环。
func BuildRoutes(base string, s *session.Session) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix(base).Subrouter()

	api.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r)
		defer cancel()
		v, err := s.View(ctx)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	}).Methods(http.MethodGet)

	api.HandleFunc("/board", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r)
		defer cancel()
		b, err := s.Board(ctx)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, b)
	}).Methods(http.MethodGet)

	api.HandleFunc("/inventory", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r)
		defer cancel()
		inv, err := s.Inventory(ctx)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}).Methods(http.MethodGet)

	api.HandleFunc("/preview", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r)
		defer cancel()
		pv, ok, err := s.Preview(ctx)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, pv)
	}).Methods(http.MethodGet)

	api.HandleFunc("/regions/{id}/fact", func(w http.ResponseWriter, r *http.Request) {
		f, err := s.Fact(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, f)
	}).Methods(http.MethodGet)

	api.HandleFunc("/resize", func(w http.ResponseWriter, r *http.Request) {
		var rect session.Rect
		if err := json.NewDecoder(r.Body).Decode(&rect); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if rect.Width <= 0 || rect.Height <= 0 {
			writeError(w, http.StatusBadRequest, "width and height must be positive")
			return
		}
		ctx, cancel := withTimeout(r)
		defer cancel()
		changed, err := s.Resize(ctx, rect)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
	}).Methods(http.MethodPost)

	api.Handle("/ws", &WSHandler{S: s})
	api.Handle("/metrics", metrics.Handler())
	api.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	logger.L().Debug("api_routes_built", "base", base)
	return r
}

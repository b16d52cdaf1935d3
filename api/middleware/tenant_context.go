/*
 * @module api/middleware/tenant_context
 * @description 租户上下文中间件：从请求头提取租户ID与操作者ID并注入上下文
 * @architecture 中间件模式 - HTTP请求拦截
 * @stateFlow 请求头提取 -> 白名单判断 -> 上下文注入 -> 下一个处理器
 * @rules 租户身份由上游网关解析，本服务只做透传；缺少租户ID的业务请求直接拒绝
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// TenantIDKey 租户ID在上下文中的键
	TenantIDKey ContextKey = "tenant_id"
	// ActorIDKey 操作者ID在上下文中的键
	ActorIDKey ContextKey = "actor_id"
)

// 不需要租户上下文的路径前缀
var whitelistPaths = []string{
	"/health",
	"/ready",
	"/metrics",
	"/swagger",
}

// TenantContext 租户上下文中间件
// 业务请求必须携带X-Tenant-ID请求头，X-User-ID可选（审计归属）
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range whitelistPaths {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusUnauthorized,
				"msg":    "缺少租户标识 X-Tenant-ID",
			})
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		if actorID := r.Header.Get("X-User-ID"); actorID != "" {
			ctx = context.WithValue(ctx, ActorIDKey, actorID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantID 从上下文读取租户ID
func TenantID(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok {
		return v
	}
	return ""
}

// ActorID 从上下文读取操作者ID，未提供时为空
func ActorID(ctx context.Context) string {
	if v, ok := ctx.Value(ActorIDKey).(string); ok {
		return v
	}
	return ""
}

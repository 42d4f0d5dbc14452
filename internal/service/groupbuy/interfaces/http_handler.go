// internal/service/groupbuy/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"pinhub/internal/pkg/logger"
	"pinhub/internal/service/groupbuy/application"
	"pinhub/internal/service/groupbuy/domain"
	"pinhub/internal/service/groupbuy/port"
)

const serviceName = "groupbuy-service"

// HandlerConfig 是 HTTP 层需要的配置。
type HandlerConfig struct {
	AdminUsers    []string      // 管理员用户名，大小写不敏感
	RefundTimeout time.Duration // 手工过期时的退款超时
}

// GroupHandler 封装拼团服务的 HTTP 处理器。
type GroupHandler struct {
	cfg      HandlerConfig
	service  *application.GroupService
	sessions port.SessionService
}

// NewGroupHandler 创建一个新的 HTTP 处理器实例
func NewGroupHandler(cfg HandlerConfig, service *application.GroupService, sessions port.SessionService) *GroupHandler {
	return &GroupHandler{cfg: cfg, service: service, sessions: sessions}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *GroupHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/pay/notify", h.payNotifyHandler)
	mux.HandleFunc("/pay/return", h.payReturnHandler)

	mux.HandleFunc("/groups", h.listGroupsHandler)
	mux.HandleFunc("GET /group/{id}", h.groupDetailHandler)
	mux.HandleFunc("/group/create", h.createGroupHandler)
	mux.HandleFunc("/group/proof", h.submitProofHandler)
	mux.HandleFunc("/me", h.myGroupsHandler)

	mux.HandleFunc("/admin/stats", h.adminStatsHandler)
	mux.HandleFunc("/admin/proofs", h.adminListProofsHandler)
	mux.HandleFunc("/admin/proof/review", h.adminReviewProofHandler)
	mux.HandleFunc("/admin/rewards", h.adminListRewardsHandler)
	mux.HandleFunc("/admin/reward/paid", h.adminRewardPaidHandler)
	mux.HandleFunc("/admin/group/expire", h.adminExpireGroupHandler)
}

// payNotifyHandler 接收网关异步通知。网关可能用 GET 或 POST 回调，
// 参数统一摊平成 map 后交给对账逻辑。应答是裸文本 success/fail。
func (h *GroupHandler) payNotifyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "PayNotifyHandler")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("fail"))
		return
	}
	params := make(map[string]string, len(r.Form))
	for key := range r.Form {
		params[key] = r.Form.Get(key)
	}

	outcome, err := h.service.HandleNotify(ctx, params)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("payment notify processing failed")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("fail"))
		return
	}

	payNotifyTotal.WithLabelValues(outcome.String()).Inc()
	span.SetAttributes(attribute.String("pay.notify.outcome", outcome.String()))

	// 仅签名失败回 fail；其余情况回 success 让网关停止重试。
	if outcome == application.OutcomeBadSignature {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("fail"))
		return
	}
	_, _ = w.Write([]byte("success"))
}

// payReturnHandler 是支付完成后的浏览器回跳页。不做对账，只引导回首页。
func (h *GroupHandler) payReturnHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><p>Payment submitted. The group will appear once the gateway confirms it.</p><p><a href="/groups">Back to groups</a></p></body></html>`))
}

var payFormTemplate = template.Must(template.New("payform").Parse(`<!DOCTYPE html>
<html><body onload="document.forms[0].submit()">
<form method="POST" action="{{.Action}}">
{{range $name, $value := .Params}}<input type="hidden" name="{{$name}}" value="{{$value}}">
{{end}}<noscript><input type="submit" value="Continue to payment"></noscript>
</form></body></html>`))

// createGroupHandler 创建拼团。默认返回自动提交到网关的 HTML 表单，
// Accept: application/json 时返回 JSON。
func (h *GroupHandler) createGroupHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "CreateGroupHandler")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := h.requireUser(ctx, w, r, true)
	if identity == nil {
		return
	}

	req, ok := h.decodeCreateRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.CreateGroup(ctx, identity, req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	groupCreatedTotal.Inc()
	span.SetAttributes(attribute.String("group.id", result.GroupID))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		h.writeJSON(w, http.StatusCreated, result)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := payFormTemplate.Execute(w, result.PayForm); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to render pay form")
	}
}

func (h *GroupHandler) decodeCreateRequest(w http.ResponseWriter, r *http.Request) (*application.CreateGroupRequest, bool) {
	req := &application.CreateGroupRequest{}
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return nil, false
		}
		return req, true
	}
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
		return nil, false
	}
	req.Title = r.Form.Get("title")
	req.Description = r.Form.Get("description")
	req.TargetURL = r.Form.Get("target_url")
	return req, true
}

// submitProofHandler 提交参团凭证。
func (h *GroupHandler) submitProofHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "SubmitProofHandler")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity := h.requireUser(ctx, w, r, true)
	if identity == nil {
		return
	}

	req := &application.SubmitProofRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	view, err := h.service.SubmitProof(ctx, identity, req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	proofSubmittedTotal.Inc()
	h.writeJSON(w, http.StatusOK, view)
}

// listGroupsHandler 返回首页的 active 拼团列表。
func (h *GroupHandler) listGroupsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "ListGroupsHandler")
	defer span.End()

	views, err := h.service.ListActiveGroups(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// groupDetailHandler 返回单个拼团的详情。
func (h *GroupHandler) groupDetailHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "GroupDetailHandler")
	defer span.End()

	groupID := r.PathValue("id")
	if groupID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	detail, err := h.service.GetGroupDetail(ctx, groupID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// myGroupsHandler 返回当前用户发布和参与的拼团。
func (h *GroupHandler) myGroupsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "MyGroupsHandler")
	defer span.End()

	identity := h.requireUser(ctx, w, r, false)
	if identity == nil {
		return
	}
	view, err := h.service.GetMyGroups(ctx, identity)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *GroupHandler) adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminStatsHandler")
	defer span.End()

	if h.requireAdmin(ctx, w, r, false) == nil {
		return
	}
	stats, err := h.service.GetAdminStats(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *GroupHandler) adminListProofsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminListProofsHandler")
	defer span.End()

	if h.requireAdmin(ctx, w, r, false) == nil {
		return
	}
	views, err := h.service.ListPendingProofs(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *GroupHandler) adminReviewProofHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminReviewProofHandler")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.requireAdmin(ctx, w, r, true) == nil {
		return
	}

	var req struct {
		MemberID int64 `json:"member_id"`
		Approve  bool  `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	view, err := h.service.ReviewProof(ctx, req.MemberID, req.Approve)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *GroupHandler) adminListRewardsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminListRewardsHandler")
	defer span.End()

	if h.requireAdmin(ctx, w, r, false) == nil {
		return
	}
	views, err := h.service.ListPendingRewards(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *GroupHandler) adminRewardPaidHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminRewardPaidHandler")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.requireAdmin(ctx, w, r, true) == nil {
		return
	}

	rewardID, err := strconv.ParseInt(r.URL.Query().Get("reward_id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reward_id is required"})
		return
	}
	if err := h.service.MarkRewardPaid(ctx, rewardID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adminExpireGroupHandler 手工过期一个拼团，与定时清理共用同一条退款路径。
func (h *GroupHandler) adminExpireGroupHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "AdminExpireGroupHandler")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.requireAdmin(ctx, w, r, true) == nil {
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "group_id is required"})
		return
	}

	group, err := h.service.GetGroupDetail(ctx, groupID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if group.Status == string(domain.GroupActive) && group.ExpiresAt != nil && time.Now().UTC().Before(*group.ExpiresAt) {
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": "group has not reached its expiry time"})
		return
	}

	if err := h.service.ExpireAndRefund(ctx, groupID, h.cfg.RefundTimeout); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser 解析会话；未登录时写出 401。mutating=true 时还校验 CSRF 头。
func (h *GroupHandler) requireUser(ctx context.Context, w http.ResponseWriter, r *http.Request, mutating bool) *port.Identity {
	identity, err := h.sessions.Lookup(ctx, sessionID(r))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("session lookup failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session lookup failed"})
		return nil
	}
	if identity == nil {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return nil
	}
	if mutating && csrfToken(r) != identity.CSRFToken {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "csrf token mismatch"})
		return nil
	}
	return identity
}

// csrfToken 从请求头或表单字段取 CSRF 令牌，两种客户端都能用。
func csrfToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	// 表单提交走 csrf_token 字段；JSON 请求的 body 不会被 FormValue 消费。
	return r.FormValue("csrf_token")
}

// requireAdmin 在 requireUser 基础上校验管理员名单（大小写不敏感）。
func (h *GroupHandler) requireAdmin(ctx context.Context, w http.ResponseWriter, r *http.Request, mutating bool) *port.Identity {
	identity := h.requireUser(ctx, w, r, mutating)
	if identity == nil {
		return nil
	}
	for _, admin := range h.cfg.AdminUsers {
		if strings.EqualFold(admin, identity.Username) {
			return identity
		}
	}
	h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
	return nil
}

func sessionID(r *http.Request) string {
	if cookie, err := r.Cookie("session_id"); err == nil {
		return cookie.Value
	}
	return r.Header.Get("X-Session-ID")
}

func (h *GroupHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError 把领域错误映射成 HTTP 状态码。
func (h *GroupHandler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrGroupNotActive),
		errors.Is(err, domain.ErrGroupExpired),
		errors.Is(err, domain.ErrGroupFull),
		errors.Is(err, domain.ErrStateConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("request failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

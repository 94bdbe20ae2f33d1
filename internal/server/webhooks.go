package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hexaflow/engine/pkg/api"
)

const (
	headerSecret    = "X-Webhook-Secret"
	headerSignature = "X-Webhook-Signature"
	bearerPrefix    = "Bearer "
)

// handleWebhook receives an inbound event for a tenant, authenticates it,
// and runs every deployed graph whose webhook trigger accepts it.
// Authentication happens before any run state is created; a rejected
// request executes zero graphs and records no trace.
func (s *Server) handleWebhook(c *gin.Context) {
	tenantID := c.Param("tenantID")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.metrics.ObserveWebhook(WebhookRejected)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "failed to read request body",
			Status: http.StatusBadRequest,
		})
		return
	}

	secret := requestSecret(c)
	if !s.authenticate(secret, c.GetHeader(headerSignature), body) {
		s.metrics.ObserveWebhook(WebhookRejected)
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{
			Error:  "webhook secret mismatch",
			Status: http.StatusUnauthorized,
		})
		return
	}

	graphs, err := s.source.GraphsForTrigger(
		c.Request.Context(), tenantID, api.TriggerWebhook,
	)
	if err != nil {
		s.metrics.ObserveWebhook(WebhookRejected)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  "failed to resolve webhook graphs",
			Status: http.StatusInternalServerError,
		})
		return
	}

	graphs = filterBySecret(graphs, secret)
	if len(graphs) == 0 {
		s.metrics.ObserveWebhook(WebhookNoMatch)
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  "no matching graphs",
			Status: http.StatusNotFound,
		})
		return
	}

	initial := webhookContext(body, c.Request.Header)

	results := make([]*api.GraphRunSummary, 0, len(graphs))
	for _, g := range graphs {
		summary := &api.GraphRunSummary{GraphID: g.ID}
		res, err := s.runner.Run(
			c.Request.Context(), g, initial, tenantID, "webhook",
		)
		if err != nil {
			summary.Status = api.RunFailed
			summary.Error = err.Error()
		} else {
			summary.RunID = res.RunID
			summary.Status = res.Status
			summary.Steps = res.Steps()
			s.metrics.ObserveRun(res.Status)
		}
		results = append(results, summary)
	}

	s.metrics.ObserveWebhook(WebhookAccepted)
	c.JSON(http.StatusOK, api.WebhookResponse{
		Accepted:       true,
		GraphsExecuted: len(results),
		Results:        results,
	})
}

// requestSecret extracts the caller's shared secret from the dedicated
// header or a bearer Authorization header
func requestSecret(c *gin.Context) string {
	if secret := c.GetHeader(headerSecret); secret != "" {
		return secret
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	return ""
}

// authenticate checks the shared secret and, when a signature header is
// present, the HMAC-SHA256 of the raw body
func (s *Server) authenticate(secret, signature string, body []byte) bool {
	configured := s.cfg.WebhookSecret
	if configured == "" {
		return true
	}
	if signature != "" {
		return validSignature(configured, signature, body)
	}
	return secret == configured
}

func validSignature(secret, signature string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	signature = strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(expected), []byte(signature))
}

// filterBySecret keeps graphs whose webhook trigger either declares no
// per-trigger secret or declares one matching the caller's
func filterBySecret(graphs []*api.Graph, secret string) []*api.Graph {
	var res []*api.Graph
	for _, g := range graphs {
		if webhookSecretMatches(g, secret) {
			res = append(res, g)
		}
	}
	return res
}

func webhookSecretMatches(g *api.Graph, secret string) bool {
	for _, t := range g.Triggers() {
		if t.Type != api.TriggerWebhook {
			continue
		}
		cfg := &api.WebhookConfig{}
		if err := api.DecodeConfig(t.Config, cfg); err != nil {
			continue
		}
		if cfg.Secret == "" || cfg.Secret == secret {
			return true
		}
	}
	return false
}

// webhookContext builds the initial run context for an inbound event: the
// parsed payload under "body", its top-level fields flattened alongside,
// and the request headers under "headers"
func webhookContext(body []byte, headers http.Header) api.Context {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		payload = map[string]any{}
	}

	hdrs := make(map[string]any, len(headers))
	for k := range headers {
		hdrs[k] = headers.Get(k)
	}

	ctx := api.Context{
		"body":    payload,
		"headers": hdrs,
	}
	for k, v := range payload {
		if k == "body" || k == "headers" {
			continue
		}
		ctx[k] = v
	}
	return ctx
}

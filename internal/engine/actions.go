package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hexaflow/engine/internal/client"
	"github.com/hexaflow/engine/internal/mail"
	"github.com/hexaflow/engine/internal/record"
	"github.com/hexaflow/engine/pkg/api"
)

var (
	ErrNoRecordStore = errors.New("no record store configured")
	ErrNoMailSender  = errors.New("no mail sender configured")
	ErrNoHTTPClient  = errors.New("no http client configured")
	ErrSummarizeHTTP = errors.New("summarize service returned an error")
)

func handleRecordCreate(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.RecordConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.Records == nil {
		return api.Failed(ErrNoRecordStore)
	}

	rec, err := req.Env.Records.Create(
		ctx, req.TenantID, cfg.Table, record.Record(cfg.Values),
	)
	if err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().
		WithPatch(resultVar(cfg, "record"), map[string]any(rec)).
		WithMessage(fmt.Sprintf("created record %s in %s", rec.ID(), cfg.Table))
}

func handleRecordFind(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.RecordConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.Records == nil {
		return api.Failed(ErrNoRecordStore)
	}

	recs, err := req.Env.Records.Find(
		ctx, req.TenantID, cfg.Table, recordQuery(cfg),
	)
	if err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().
		WithPatch(resultVar(cfg, "records"), recordList(recs)).
		WithMessage(fmt.Sprintf("found %d records in %s", len(recs), cfg.Table))
}

func handleRecordUpdate(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.RecordConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.Records == nil {
		return api.Failed(ErrNoRecordStore)
	}

	recs, err := req.Env.Records.Update(
		ctx, req.TenantID, cfg.Table, recordQuery(cfg),
		record.Record(cfg.Values),
	)
	if err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().
		WithPatch(resultVar(cfg, "records"), recordList(recs)).
		WithMessage(
			fmt.Sprintf("updated %d records in %s", len(recs), cfg.Table))
}

func handleRecordUpsert(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.RecordConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.Records == nil {
		return api.Failed(ErrNoRecordStore)
	}

	rec, created, err := req.Env.Records.Upsert(
		ctx, req.TenantID, cfg.Table, recordQuery(cfg),
		record.Record(cfg.Values),
	)
	if err != nil {
		return api.Failed(err)
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	return api.NewOutcome().
		WithPatch(resultVar(cfg, "record"), map[string]any(rec)).
		WithMessage(fmt.Sprintf("%s record %s in %s", verb, rec.ID(), cfg.Table))
}

func recordQuery(cfg *api.RecordConfig) record.Query {
	conditions := make([]record.Condition, len(cfg.Conditions))
	for i, c := range cfg.Conditions {
		conditions[i] = record.Condition{
			Field: c.Field,
			Op:    c.Op,
			Value: c.Value,
		}
	}
	return record.Query{
		Conditions: conditions,
		OrderBy:    cfg.OrderBy,
		Descending: cfg.Descending,
		Limit:      cfg.Limit,
		Offset:     cfg.Offset,
	}
}

func recordList(recs []record.Record) []any {
	out := make([]any, len(recs))
	for i, rec := range recs {
		out[i] = map[string]any(rec)
	}
	return out
}

func resultVar(cfg *api.RecordConfig, def string) string {
	if cfg.ResultVar != "" {
		return cfg.ResultVar
	}
	return def
}

func handleSendEmail(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.EmailConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.Mail == nil {
		return api.Failed(ErrNoMailSender)
	}

	from := cfg.From
	if from == "" {
		from = req.Env.MailFrom
	}
	msg := &mail.Message{
		From:    from,
		To:      splitRecipients(cfg.To),
		Subject: cfg.Subject,
		Body:    cfg.Body,
	}
	if err := req.Env.Mail.Send(ctx, msg); err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().
		WithMessage(fmt.Sprintf("email sent to %s", cfg.To))
}

func splitRecipients(to string) []string {
	fields := strings.FieldsFunc(to, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if addr := strings.TrimSpace(f); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func handleHTTPRequest(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.HTTPRequestConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.HTTP == nil {
		return api.Failed(ErrNoHTTPClient)
	}

	resp, err := req.Env.HTTP.Do(ctx, &client.Request{
		Method:  cfg.Method,
		URL:     cfg.URL,
		Headers: cfg.Headers,
		Body:    cfg.Body,
		Auth: client.Auth{
			Type:     cfg.Auth.Type,
			Token:    cfg.Auth.Token,
			Key:      cfg.Auth.Key,
			Header:   cfg.Auth.Header,
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		},
		Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return api.Failed(err)
	}

	name := cfg.ResultVar
	if name == "" {
		name = "response"
	}
	return api.NewOutcome().
		WithPatch(name, responseValue(resp)).
		WithMessage(fmt.Sprintf("%s %s -> %d",
			strings.ToUpper(cfg.Method), cfg.URL, resp.StatusCode))
}

func responseValue(resp *client.Response) map[string]any {
	headers := make(map[string]any, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	return map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    resp.Body,
	}
}

// handleOpenModal, handleShowToast, and handleNavigate are headless on the
// server side. Each emits a directive patch that the client runtime renders
// after the run completes.
func handleOpenModal(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.ModalConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().WithPatch("modal", map[string]any{
		"title":   cfg.Title,
		"content": cfg.Content,
	})
}

func handleShowToast(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.ToastConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return api.NewOutcome().WithPatch("toast", map[string]any{
		"message": cfg.Message,
		"level":   level,
	})
}

func handleNavigate(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.NavigateConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if cfg.URL == "" && cfg.PageID == "" {
		return api.Failed(api.ErrNavigateNoTarget)
	}
	return api.NewOutcome().WithPatch("navigation", map[string]any{
		"url":    cfg.URL,
		"pageId": cfg.PageID,
	})
}

func handleSummarizeFile(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.SummarizeFileConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if req.Env.HTTP == nil {
		return api.Failed(ErrNoHTTPClient)
	}

	resp, err := req.Env.HTTP.Do(ctx, &client.Request{
		Method: "POST",
		URL:    cfg.ServiceURL,
		Body:   map[string]any{"file_url": cfg.FileURL},
	})
	if err != nil {
		return api.Failed(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return api.Failed(
			fmt.Errorf("%w: status %d", ErrSummarizeHTTP, resp.StatusCode))
	}

	name := cfg.ResultVar
	if name == "" {
		name = "summary"
	}
	return api.NewOutcome().
		WithPatch(name, summaryValue(resp.Body)).
		WithMessage("file summarized")
}

// summaryValue unwraps the conventional {summary: ...} envelope when the
// service uses it, otherwise captures the body as is
func summaryValue(body any) any {
	if m, ok := body.(map[string]any); ok {
		if s, ok := m["summary"]; ok {
			return s
		}
	}
	return body
}

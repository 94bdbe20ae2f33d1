package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hexaflow/engine/pkg/api"
)

// cronPlaceholderMs is the fixed delay used for cron-mode schedules. Cron
// expressions are stored but intentionally not evaluated; see DESIGN.md.
const cronPlaceholderMs int64 = 60_000

var intervalUnitMs = map[string]int64{
	"ms": 1, "millisecond": 1, "milliseconds": 1,
	"s": 1000, "second": 1000, "seconds": 1000,
	"m": 60_000, "minute": 60_000, "minutes": 60_000,
	"h": 3_600_000, "hour": 3_600_000, "hours": 3_600_000,
	"d": 86_400_000, "day": 86_400_000, "days": 86_400_000,
}

// triggerMatchesShape reports whether the inbound event's shape matches the
// trigger's declared payload shape. It drives start-node selection; the
// trigger's own filter still decides whether the run proceeds.
func triggerMatchesShape(node *api.Node, initial api.Context) bool {
	switch node.Type {
	case api.TriggerFormSubmit:
		return initial.GetMap("formData") != nil
	case api.TriggerPageLoad:
		_, ok := initial["page"]
		return ok
	case api.TriggerFileDrop:
		return initial.GetMap("file") != nil
	case api.TriggerSchedule:
		_, ok := initial["tick"]
		return ok
	case api.TriggerRecordCreated:
		return initial.GetString("change", "") == "created"
	case api.TriggerRecordUpdated:
		return initial.GetString("change", "") == "updated"
	case api.TriggerUserLogin:
		if _, ok := initial["user"]; ok {
			return true
		}
		if _, ok := initial["session"]; ok {
			return true
		}
		_, ok := initial["authResponse"]
		return ok
	case api.TriggerWebhook:
		if _, ok := initial["webhook"]; ok {
			return true
		}
		_, ok := initial["body"]
		return ok
	default:
		return false
	}
}

func handlePageLoad(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.PageLoadConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	if cfg.PageID != "" {
		pageID := req.Context.GetString("pageId", "")
		if page := req.Context.GetMap("page"); page != nil {
			if id, ok := page["id"].(string); ok {
				pageID = id
			}
		}
		if pageID != cfg.PageID {
			return api.Untriggered(
				fmt.Sprintf("page %q does not match", pageID))
		}
	}
	return api.NewOutcome().WithTriggered()
}

func handleFormSubmit(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.FormSubmitConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	if req.Context.GetMap("formData") == nil {
		return api.Untriggered("no form data in event")
	}
	if cfg.FormID != "" {
		if req.Context.GetString("formId", "") != cfg.FormID {
			return api.Untriggered("form does not match")
		}
	}
	return api.NewOutcome().WithTriggered()
}

func handleFileDrop(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.FileDropConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	file := req.Context.GetMap("file")
	if file == nil {
		return api.Untriggered("no file in event")
	}

	if len(cfg.Extensions) > 0 {
		name, _ := file["name"].(string)
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		found := false
		for _, allowed := range cfg.Extensions {
			if strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext {
				found = true
				break
			}
		}
		if !found {
			return api.Untriggered(
				fmt.Sprintf("extension %q not accepted", ext))
		}
	}
	return api.NewOutcome().WithTriggered()
}

// handleSchedule validates the schedule trigger and surfaces the computed
// delay. Firing at the right moment is the timer adapter's job; by the
// time a run reaches this handler the tick has already happened.
func handleSchedule(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.ScheduleConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	delay, err := ScheduleDelayMs(cfg)
	if err != nil {
		return api.Failed(err)
	}

	return api.NewOutcome().WithTriggered().
		WithPatch("schedule", map[string]any{
			"mode":        cfg.Mode,
			"interval_ms": delay,
			"cron":        cfg.Cron,
		})
}

// ScheduleDelayMs converts a schedule configuration to a delay in
// milliseconds. Cron expressions are not evaluated; they yield a fixed
// placeholder delay.
func ScheduleDelayMs(cfg *api.ScheduleConfig) (int64, error) {
	switch cfg.Mode {
	case api.ScheduleModeInterval:
		unit, ok := intervalUnitMs[strings.ToLower(cfg.Unit)]
		if !ok {
			return 0, fmt.Errorf("%w: unit %q",
				api.ErrInvalidSchedule, cfg.Unit)
		}
		ms := int64(cfg.Value * float64(unit))
		if ms <= 0 {
			return 0, fmt.Errorf("%w: non-positive interval",
				api.ErrInvalidSchedule)
		}
		return ms, nil
	case api.ScheduleModeCron:
		return cronPlaceholderMs, nil
	default:
		return 0, fmt.Errorf("%w: %s", api.ErrUnknownScheduleMode, cfg.Mode)
	}
}

func handleRecordCreated(_ context.Context, req *Request) *api.Outcome {
	return recordChangeOutcome(req, "created", false)
}

func handleRecordUpdated(_ context.Context, req *Request) *api.Outcome {
	return recordChangeOutcome(req, "updated", true)
}

func recordChangeOutcome(
	req *Request, change string, watchColumns bool,
) *api.Outcome {
	cfg := &api.RecordChangeConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	table := req.Context.GetString("table", "")
	if table != cfg.Table {
		return api.Untriggered(
			fmt.Sprintf("table %q does not match %q", table, cfg.Table))
	}
	if req.Context.GetString("change", "") != change {
		return api.Untriggered("change type does not match")
	}

	if watchColumns && len(cfg.Columns) > 0 {
		if !anyColumnChanged(cfg.Columns, req.Context["changed"]) {
			return api.Untriggered("no watched column changed")
		}
	}
	return api.NewOutcome().WithTriggered()
}

func anyColumnChanged(watched []string, changed any) bool {
	var cols []string
	switch v := changed.(type) {
	case []string:
		cols = v
	case []any:
		for _, c := range v {
			if s, ok := c.(string); ok {
				cols = append(cols, s)
			}
		}
	}
	for _, w := range watched {
		for _, c := range cols {
			if strings.EqualFold(w, c) {
				return true
			}
		}
	}
	return false
}

func handleWebhookTrigger(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.WebhookConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	body := req.Context.GetMap("body")
	if body == nil {
		return api.Untriggered("no webhook payload in event")
	}
	if cfg.Event != "" {
		event, _ := body["event"].(string)
		if event != cfg.Event {
			return api.Untriggered(
				fmt.Sprintf("event %q does not match", event))
		}
	}
	return api.NewOutcome().WithTriggered()
}

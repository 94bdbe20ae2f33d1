package api

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Trigger block types
const (
	TriggerPageLoad      BlockType = "page-load"
	TriggerFormSubmit    BlockType = "form-submit"
	TriggerFileDrop      BlockType = "file-drop"
	TriggerSchedule      BlockType = "schedule"
	TriggerRecordCreated BlockType = "record-created"
	TriggerRecordUpdated BlockType = "record-updated"
	TriggerUserLogin     BlockType = "user-login"
	TriggerWebhook       BlockType = "webhook"
)

// Condition block types
const (
	ConditionFieldFilled BlockType = "field-filled"
	ConditionDateValid   BlockType = "date-valid"
	ConditionValueMatch  BlockType = "value-match"
	ConditionRoleCheck   BlockType = "role-check"
	ConditionExpression  BlockType = "expression"
	ConditionSwitch      BlockType = "switch"
)

// Action block types
const (
	ActionRecordCreate  BlockType = "record-create"
	ActionRecordFind    BlockType = "record-find"
	ActionRecordUpdate  BlockType = "record-update"
	ActionRecordUpsert  BlockType = "record-upsert"
	ActionSendEmail     BlockType = "send-email"
	ActionHTTPRequest   BlockType = "http-request"
	ActionOpenModal     BlockType = "open-modal"
	ActionShowToast     BlockType = "show-toast"
	ActionSummarizeFile BlockType = "summarize-file"
	ActionNavigate      BlockType = "navigate"
)

type (
	// PageLoadConfig filters the page-load trigger to a single page when
	// PageID is set
	PageLoadConfig struct {
		PageID  string `json:"page_id,omitempty"`
		Enabled *bool  `json:"enabled,omitempty"`
	}

	// FormSubmitConfig filters the form-submit trigger to a single form
	// when FormID is set
	FormSubmitConfig struct {
		FormID  string `json:"form_id,omitempty"`
		Enabled *bool  `json:"enabled,omitempty"`
	}

	// FileDropConfig filters dropped files by extension
	FileDropConfig struct {
		Extensions []string `json:"extensions,omitempty"`
		Enabled    *bool    `json:"enabled,omitempty"`
	}

	// ScheduleConfig configures the scheduled trigger. Interval mode
	// converts (Value, Unit) to milliseconds; cron mode stores the
	// expression verbatim without evaluating it.
	ScheduleConfig struct {
		Mode    string  `json:"mode"`
		Value   float64 `json:"value,omitempty"`
		Unit    string  `json:"unit,omitempty"`
		Cron    string  `json:"cron,omitempty"`
		Enabled *bool   `json:"enabled,omitempty"`
	}

	// RecordChangeConfig filters record-created and record-updated
	// triggers by table and, for updates, by watched columns
	RecordChangeConfig struct {
		Table   string   `json:"table"`
		Columns []string `json:"columns,omitempty"`
		Enabled *bool    `json:"enabled,omitempty"`
	}

	// UserLoginConfig configures the login trigger
	UserLoginConfig struct {
		Enabled *bool `json:"enabled,omitempty"`
	}

	// WebhookConfig configures the inbound-webhook trigger. Secret is
	// compared against the shared-secret header; Event optionally filters
	// by a payload event name.
	WebhookConfig struct {
		Secret  string `json:"secret,omitempty"`
		Event   string `json:"event,omitempty"`
		Enabled *bool  `json:"enabled,omitempty"`
	}

	// FieldFilledConfig checks a context path for a non-empty value
	FieldFilledConfig struct {
		Field string `json:"field"`
	}

	// DateValidConfig validates one or more date values against a set of
	// independently applied rules
	DateValidConfig struct {
		Fields          []string `json:"fields,omitempty"`
		Values          []string `json:"values,omitempty"`
		Format          string   `json:"format,omitempty"`
		Required        bool     `json:"required,omitempty"`
		Min             string   `json:"min,omitempty"`
		Max             string   `json:"max,omitempty"`
		BusinessDays    bool     `json:"business_days,omitempty"`
		FutureOnly      bool     `json:"future_only,omitempty"`
		PastOnly        bool     `json:"past_only,omitempty"`
		ExcludedDates   []string `json:"excluded_dates,omitempty"`
		AllowedWeekdays []string `json:"allowed_weekdays,omitempty"`
		NoLeapYear      bool     `json:"no_leap_year,omitempty"`
		MinAge          int      `json:"min_age,omitempty"`
		MaxAge          int      `json:"max_age,omitempty"`
	}

	// ValueMatchConfig compares two resolved values with an operator
	ValueMatchConfig struct {
		Left     string `json:"left"`
		Operator string `json:"operator,omitempty"`
		Right    string `json:"right,omitempty"`
	}

	// RoleCheckConfig requires the caller to hold a role (single-role
	// mode), or membership in Roles (multi-role mode), and grants for
	// every page in Pages
	RoleCheckConfig struct {
		Role  string   `json:"role,omitempty"`
		Roles []string `json:"roles,omitempty"`
		Pages []string `json:"pages,omitempty"`
	}

	// ExpressionConfig evaluates a boolean expression against the context
	ExpressionConfig struct {
		Expression string `json:"expression"`
	}

	// SwitchConfig routes on a resolved value across case labels
	SwitchConfig struct {
		Value string   `json:"value"`
		Cases []string `json:"cases,omitempty"`
	}

	// QueryCondition is a single record-store filter clause
	QueryCondition struct {
		Field string `json:"field"`
		Op    string `json:"op,omitempty"`
		Value any    `json:"value"`
	}

	// RecordConfig configures the record actions: table, values to write,
	// filter conditions, ordering and pagination for finds, and the
	// context variable receiving the result
	RecordConfig struct {
		Table      string           `json:"table"`
		Values     map[string]any   `json:"values,omitempty"`
		Conditions []QueryCondition `json:"conditions,omitempty"`
		OrderBy    string           `json:"order_by,omitempty"`
		Descending bool             `json:"descending,omitempty"`
		Limit      int              `json:"limit,omitempty"`
		Offset     int              `json:"offset,omitempty"`
		ResultVar  string           `json:"result_var,omitempty"`
	}

	// EmailConfig configures the send-email action
	EmailConfig struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body,omitempty"`
		From    string `json:"from,omitempty"`
	}

	// AuthConfig selects the outbound HTTP authentication scheme
	AuthConfig struct {
		Type     string `json:"type,omitempty"`
		Token    string `json:"token,omitempty"`
		Key      string `json:"key,omitempty"`
		Header   string `json:"header,omitempty"`
		Username string `json:"username,omitempty"`
		Password string `json:"password,omitempty"`
	}

	// HTTPRequestConfig configures the outbound HTTP action. The response
	// is captured into the context variable named by ResultVar.
	HTTPRequestConfig struct {
		URL       string            `json:"url"`
		Method    string            `json:"method"`
		Headers   map[string]string `json:"headers,omitempty"`
		Body      any               `json:"body,omitempty"`
		Auth      AuthConfig        `json:"auth,omitempty"`
		TimeoutMs int64             `json:"timeout_ms,omitempty"`
		ResultVar string            `json:"result_var,omitempty"`
	}

	// ModalConfig configures the open-modal UI action
	ModalConfig struct {
		Title   string `json:"title"`
		Content string `json:"content,omitempty"`
	}

	// ToastConfig configures the show-toast UI action
	ToastConfig struct {
		Message string `json:"message"`
		Level   string `json:"level,omitempty"`
	}

	// SummarizeFileConfig configures file summarization via an external
	// HTTP service
	SummarizeFileConfig struct {
		FileURL    string `json:"file_url"`
		ServiceURL string `json:"service_url"`
		ResultVar  string `json:"result_var,omitempty"`
	}

	// NavigateConfig configures the redirect/navigate UI action
	NavigateConfig struct {
		URL    string `json:"url,omitempty"`
		PageID string `json:"page_id,omitempty"`
	}
)

const (
	ScheduleModeInterval = "interval"
	ScheduleModeCron     = "cron"

	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api-key"
	AuthBasic  = "basic"
)

var (
	ErrConfigDecode        = errors.New("failed to decode node config")
	ErrFieldRequired       = errors.New("required config field missing")
	ErrInvalidSchedule     = errors.New("invalid schedule config")
	ErrInvalidAuthType     = errors.New("invalid auth type")
	ErrNavigateNoTarget    = errors.New("navigate requires url or page_id")
	ErrDateValidNoInput    = errors.New("date-valid requires fields or values")
	ErrUnknownScheduleMode = errors.New("unknown schedule mode")
)

var validAuthTypes = map[string]struct{}{
	"": {}, AuthNone: {}, AuthBearer: {}, AuthAPIKey: {}, AuthBasic: {},
}

// DecodeConfig decodes a node's raw configuration map into a typed config
// struct, coercing loosely typed values the way the authoring subsystem
// produces them
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigDecode, err)
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigDecode, err)
	}
	return nil
}

// ValidateNodeConfig decodes and validates a node's configuration for its
// block type. Malformed configuration is a load-time error; a run over a
// graph containing it never starts.
func ValidateNodeConfig(n *Node) error {
	switch n.Type {
	case TriggerPageLoad:
		return DecodeConfig(n.Config, &PageLoadConfig{})
	case TriggerFormSubmit:
		return DecodeConfig(n.Config, &FormSubmitConfig{})
	case TriggerFileDrop:
		return DecodeConfig(n.Config, &FileDropConfig{})
	case TriggerSchedule:
		return validateSchedule(n)
	case TriggerRecordCreated, TriggerRecordUpdated:
		return validateRecordChange(n)
	case TriggerUserLogin:
		return DecodeConfig(n.Config, &UserLoginConfig{})
	case TriggerWebhook:
		return DecodeConfig(n.Config, &WebhookConfig{})

	case ConditionFieldFilled:
		return requireFields(n, &FieldFilledConfig{},
			func(c any) []check {
				cfg := c.(*FieldFilledConfig)
				return []check{{"field", cfg.Field != ""}}
			})
	case ConditionDateValid:
		return validateDateValid(n)
	case ConditionValueMatch:
		return requireFields(n, &ValueMatchConfig{},
			func(c any) []check {
				cfg := c.(*ValueMatchConfig)
				return []check{{"left", cfg.Left != ""}}
			})
	case ConditionRoleCheck:
		// empty config is valid: single-role mode against the baseline role
		return DecodeConfig(n.Config, &RoleCheckConfig{})
	case ConditionExpression:
		return requireFields(n, &ExpressionConfig{},
			func(c any) []check {
				cfg := c.(*ExpressionConfig)
				return []check{{"expression", cfg.Expression != ""}}
			})
	case ConditionSwitch:
		return requireFields(n, &SwitchConfig{},
			func(c any) []check {
				cfg := c.(*SwitchConfig)
				return []check{{"value", cfg.Value != ""}}
			})

	case ActionRecordCreate, ActionRecordFind, ActionRecordUpdate,
		ActionRecordUpsert:
		return requireFields(n, &RecordConfig{},
			func(c any) []check {
				cfg := c.(*RecordConfig)
				return []check{{"table", cfg.Table != ""}}
			})
	case ActionSendEmail:
		return requireFields(n, &EmailConfig{},
			func(c any) []check {
				cfg := c.(*EmailConfig)
				return []check{
					{"to", cfg.To != ""},
					{"subject", cfg.Subject != ""},
				}
			})
	case ActionHTTPRequest:
		return validateHTTPRequest(n)
	case ActionOpenModal:
		return requireFields(n, &ModalConfig{},
			func(c any) []check {
				cfg := c.(*ModalConfig)
				return []check{{"title", cfg.Title != ""}}
			})
	case ActionShowToast:
		return requireFields(n, &ToastConfig{},
			func(c any) []check {
				cfg := c.(*ToastConfig)
				return []check{{"message", cfg.Message != ""}}
			})
	case ActionSummarizeFile:
		return requireFields(n, &SummarizeFileConfig{},
			func(c any) []check {
				cfg := c.(*SummarizeFileConfig)
				return []check{
					{"file_url", cfg.FileURL != ""},
					{"service_url", cfg.ServiceURL != ""},
				}
			})
	case ActionNavigate:
		cfg := &NavigateConfig{}
		if err := DecodeConfig(n.Config, cfg); err != nil {
			return err
		}
		if cfg.URL == "" && cfg.PageID == "" {
			return fmt.Errorf("%w: node %s", ErrNavigateNoTarget, n.ID)
		}
		return nil
	}

	return fmt.Errorf("%w: %s for node %s", ErrUnknownType, n.Type, n.ID)
}

type check struct {
	name string
	ok   bool
}

func requireFields(
	n *Node, out any, checks func(any) []check,
) error {
	if err := DecodeConfig(n.Config, out); err != nil {
		return err
	}
	for _, c := range checks(out) {
		if !c.ok {
			return fmt.Errorf("%w: %s for node %s",
				ErrFieldRequired, c.name, n.ID)
		}
	}
	return nil
}

func validateSchedule(n *Node) error {
	cfg := &ScheduleConfig{}
	if err := DecodeConfig(n.Config, cfg); err != nil {
		return err
	}
	switch cfg.Mode {
	case ScheduleModeInterval:
		if cfg.Value <= 0 || cfg.Unit == "" {
			return fmt.Errorf("%w: interval requires value and unit",
				ErrInvalidSchedule)
		}
	case ScheduleModeCron:
		if cfg.Cron == "" {
			return fmt.Errorf("%w: cron mode requires an expression",
				ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownScheduleMode, cfg.Mode)
	}
	return nil
}

func validateRecordChange(n *Node) error {
	cfg := &RecordChangeConfig{}
	if err := DecodeConfig(n.Config, cfg); err != nil {
		return err
	}
	if cfg.Table == "" {
		return fmt.Errorf("%w: table for node %s", ErrFieldRequired, n.ID)
	}
	return nil
}

func validateDateValid(n *Node) error {
	cfg := &DateValidConfig{}
	if err := DecodeConfig(n.Config, cfg); err != nil {
		return err
	}
	if len(cfg.Fields) == 0 && len(cfg.Values) == 0 {
		return fmt.Errorf("%w: node %s", ErrDateValidNoInput, n.ID)
	}
	return nil
}

func validateHTTPRequest(n *Node) error {
	cfg := &HTTPRequestConfig{}
	if err := DecodeConfig(n.Config, cfg); err != nil {
		return err
	}
	if cfg.URL == "" {
		return fmt.Errorf("%w: url for node %s", ErrFieldRequired, n.ID)
	}
	if cfg.Method == "" {
		return fmt.Errorf("%w: method for node %s", ErrFieldRequired, n.ID)
	}
	if _, ok := validAuthTypes[cfg.Auth.Type]; !ok {
		return fmt.Errorf("%w: %s for node %s",
			ErrInvalidAuthType, cfg.Auth.Type, n.ID)
	}
	return nil
}

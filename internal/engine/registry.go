package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hexaflow/engine/internal/client"
	"github.com/hexaflow/engine/internal/mail"
	"github.com/hexaflow/engine/internal/record"
	"github.com/hexaflow/engine/pkg/api"
)

type (
	// Handler executes one block: resolved configuration in, outcome out.
	// Handlers convert internal faults to failed outcomes; they never let
	// an error escape uncaught.
	Handler func(ctx context.Context, req *Request) *api.Outcome

	// Request carries everything a handler needs for one node execution
	Request struct {
		Node     *api.Node
		Config   map[string]any
		Context  api.Context
		TenantID string
		ActorID  string
		Env      *Env
	}

	// RoleDirectory looks up caller roles and page-access grants. It is
	// owned by the platform's auth subsystem.
	RoleDirectory interface {
		RolesFor(
			ctx context.Context, tenantID, actorID string,
		) ([]string, error)
		PageGrants(
			ctx context.Context, tenantID, actorID string,
		) ([]string, error)
	}

	// Env bundles the external collaborators injected into handlers
	Env struct {
		Records  record.Store
		Mail     mail.Sender
		HTTP     *client.Client
		Roles    RoleDirectory
		Expr     *ExprEnv
		MailFrom string
		Clock    func() time.Time
	}

	// Registry is the explicit dispatch table mapping block types to
	// handlers. It is constructed once and injected into the Runner.
	Registry struct {
		handlers map[api.BlockType]Handler
		environ  *Env
	}
)

var (
	ErrNoHandler = errors.New("no handler registered for block type")
	ErrNoTrigger = errors.New("graph has no trigger node")
)

// NewRegistry constructs the full block handler catalog bound to the given
// environment
func NewRegistry(env *Env) *Registry {
	if env.Clock == nil {
		env.Clock = time.Now
	}
	if env.Expr == nil {
		env.Expr = NewExprEnv()
	}

	r := &Registry{
		handlers: map[api.BlockType]Handler{},
		environ:  env,
	}

	// Triggers
	r.register(api.TriggerPageLoad, handlePageLoad)
	r.register(api.TriggerFormSubmit, handleFormSubmit)
	r.register(api.TriggerFileDrop, handleFileDrop)
	r.register(api.TriggerSchedule, handleSchedule)
	r.register(api.TriggerRecordCreated, handleRecordCreated)
	r.register(api.TriggerRecordUpdated, handleRecordUpdated)
	r.register(api.TriggerUserLogin, handleUserLogin)
	r.register(api.TriggerWebhook, handleWebhookTrigger)

	// Conditions
	r.register(api.ConditionFieldFilled, handleFieldFilled)
	r.register(api.ConditionDateValid, handleDateValid)
	r.register(api.ConditionValueMatch, handleValueMatch)
	r.register(api.ConditionRoleCheck, handleRoleCheck)
	r.register(api.ConditionExpression, handleExpression)
	r.register(api.ConditionSwitch, handleSwitch)

	// Actions
	r.register(api.ActionRecordCreate, handleRecordCreate)
	r.register(api.ActionRecordFind, handleRecordFind)
	r.register(api.ActionRecordUpdate, handleRecordUpdate)
	r.register(api.ActionRecordUpsert, handleRecordUpsert)
	r.register(api.ActionSendEmail, handleSendEmail)
	r.register(api.ActionHTTPRequest, handleHTTPRequest)
	r.register(api.ActionOpenModal, handleOpenModal)
	r.register(api.ActionShowToast, handleShowToast)
	r.register(api.ActionSummarizeFile, handleSummarizeFile)
	r.register(api.ActionNavigate, handleNavigate)

	return r
}

func (r *Registry) register(t api.BlockType, h Handler) {
	r.handlers[t] = h
}

// Handler returns the handler for the given block type
func (r *Registry) Handler(t api.BlockType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

func (r *Registry) env() *Env {
	return r.environ
}

// decode unmarshals the resolved config map into a typed config struct,
// converting decode failures into failed outcomes at the call site
func (req *Request) decode(out any) error {
	return api.DecodeConfig(req.Config, out)
}

// enabled reports whether a trigger config enables the trigger; nil means
// enabled
func enabled(flag *bool) bool {
	return flag == nil || *flag
}

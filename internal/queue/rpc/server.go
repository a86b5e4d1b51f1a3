package rpc

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/pkg/ctxlog"
	"github.com/mediq/patient-queue/internal/queue"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder stored for a blank address or religion.
const Placeholder = "-"

// FailureCode is reported when an admission error has no message.
const FailureCode = "queue_add_failed"

// Admitter admits patients to the queue.
type Admitter interface {
	Add(ctx context.Context, input queue.AddInput) (*queue.AddResult, error)
}

// Server implements QueueServiceServer on top of the queue service.
type Server struct {
	admitter Admitter
}

// NewServer creates a new RPC server.
func NewServer(admitter Admitter) *Server {
	return &Server{admitter: admitter}
}

// AddToQueue admits a patient. Failures, including a panicking admitter, are
// reported in the response with Success false; the returned error is always
// nil.
func (s *Server) AddToQueue(ctx context.Context, req *AddToQueueRequest) (resp *AddToQueueResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			ctxlog.FromContext(ctx).Error("panic during rpc admission",
				"panic", p,
				"stack", string(debug.Stack()),
			)
			resp, err = &AddToQueueResponse{Error: FailureCode}, nil
		}
	}()

	result, err := s.admitter.Add(ctx, toInput(req))
	if err != nil {
		ctxlog.FromContext(ctx).Warn("rpc admission failed", "error", err)
		msg := err.Error()
		if msg == "" {
			msg = FailureCode
		}
		return &AddToQueueResponse{Error: msg}, nil
	}

	data := []byte("{}")
	if result.Data != nil {
		if data, err = json.Marshal(result.Data); err != nil {
			ctxlog.FromContext(ctx).Error("failed to encode admitted entry", "error", err)
			return &AddToQueueResponse{Error: err.Error()}, nil
		}
	}

	message := result.Message
	if message == "" {
		message = queue.AddedMessage
	}

	return &AddToQueueResponse{
		Success:  true,
		Message:  message,
		DataJSON: string(data),
	}, nil
}

func toInput(req *AddToQueueRequest) queue.AddInput {
	return queue.AddInput{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		BirthPlace:  req.BirthPlace,
		BirthDate:   req.BirthDate,
		Gender:      req.Gender,
		Address:     orPlaceholder(req.Address),
		Religion:    orPlaceholder(req.Religion),
		Priority:    normalizePriority(req.Priority),
		Note:        req.Note,
	}
}

// normalizePriority upper-cases p and returns it when it names a known
// priority, or "" so the service default applies.
func normalizePriority(p string) domain.Priority {
	normalized := domain.Priority(cases.Upper(language.Und).String(strings.TrimSpace(p)))
	if !normalized.IsValid() {
		return ""
	}
	return normalized
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

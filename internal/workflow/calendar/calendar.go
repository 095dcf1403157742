// Package calendar implements the calendar request workflows: a gated
// extraction chain, a new/modify router and a parallel request validation.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/prompt"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/workflow"
)

// DefaultSigner signs confirmation messages.
const DefaultSigner = "Koochi"

var (
	extractionShape   = shape.MustOf[EventExtraction]("event_extraction", "Basic event information")
	detailsShape      = shape.MustOf[EventDetails]("event_details", "Specific event details")
	confirmationShape = shape.MustOf[EventConfirmation]("event_confirmation", "Event confirmation message")
	requestTypeShape  = shape.MustOf[RequestType]("calendar_request_type", "Type of calendar request")
	newEventShape     = shape.MustOf[NewEventDetails]("new_event_details", "Details for creating a new event")
	modifyEventShape  = shape.MustOf[ModifyEventDetails]("modify_event_details", "Details for modifying an existing event")
	validationShape   = shape.MustOf[Validation]("calendar_validation", "Whether the request is a calendar request")
	securityShape     = shape.MustOf[SecurityCheck]("security_check", "Prompt injection and manipulation check")
)

// Config configures the calendar workflows.
type Config struct {
	Steps   extract.Config
	Prompts *prompt.Catalogue

	// Threshold is the minimum confidence for gates and routing.
	Threshold float64
	Signer    string

	// Now supplies the date used for relative date references.
	Now func() time.Time
}

// Service runs the calendar workflows. It is safe for concurrent use.
type Service struct {
	prompts   *prompt.Catalogue
	threshold float64
	signer    string
	now       func() time.Time
	logger    *zap.Logger

	extraction   *extract.Step[EventExtraction]
	details      *extract.Step[EventDetails]
	confirmation *extract.Step[EventConfirmation]
	requestType  *extract.Step[RequestType]
	newEvent     *extract.Step[NewEventDetails]
	modifyEvent  *extract.Step[ModifyEventDetails]
	validation   *extract.Step[Validation]
	security     *extract.Step[SecurityCheck]
}

// New creates the calendar service.
func New(cfg Config) (*Service, error) {
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Default()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = workflow.DefaultThreshold
	}
	if cfg.Threshold > 1 {
		return nil, failure.New(failure.KindConfiguration, "calendar.new",
			fmt.Sprintf("threshold %.2f is outside (0,1]", cfg.Threshold))
	}
	if cfg.Signer == "" {
		cfg.Signer = DefaultSigner
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Steps.Logger == nil {
		cfg.Steps.Logger = zap.NewNop()
	}

	s := &Service{
		prompts:   cfg.Prompts,
		threshold: cfg.Threshold,
		signer:    cfg.Signer,
		now:       cfg.Now,
		logger:    cfg.Steps.Logger,
	}

	var err error
	if s.extraction, err = extract.NewStep(cfg.Steps, extractionShape); err != nil {
		return nil, err
	}
	s.details = extract.MustStep(cfg.Steps, detailsShape)
	s.confirmation = extract.MustStep(cfg.Steps, confirmationShape)
	s.requestType = extract.MustStep(cfg.Steps, requestTypeShape)
	s.newEvent = extract.MustStep(cfg.Steps, newEventShape)
	s.modifyEvent = extract.MustStep(cfg.Steps, modifyEventShape)
	s.validation = extract.MustStep(cfg.Steps, validationShape)
	s.security = extract.MustStep(cfg.Steps, securityShape)
	return s, nil
}

// Threshold returns the configured confidence threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

func (s *Service) dateContext() string {
	return s.now().Format("Today is Monday, January 02, 2006.")
}

func (s *Service) render(name string, vars prompt.Vars) (string, error) {
	out, err := s.prompts.Render(name, vars)
	if err != nil {
		return "", failure.Wrap(failure.KindConfiguration, "calendar.prompt", err)
	}
	return out, nil
}

// ChainResult is the outcome of the calendar chain. Details and Confirmation
// are nil when the gate rejected the request.
type ChainResult struct {
	workflow.Report
	Extraction   EventExtraction    `json:"extraction"`
	Details      *EventDetails      `json:"details,omitempty"`
	Confirmation *EventConfirmation `json:"confirmation,omitempty"`
}

// Chain extracts the event, checks it is a confident calendar event, parses
// its details and produces a signed confirmation.
func (s *Service) Chain(ctx context.Context, input string) (*ChainResult, error) {
	res := &ChainResult{}

	chain := workflow.NewChain[ChainResult]("calendar", s.logger).
		Then("extract_event", func(ctx context.Context, r *ChainResult) error {
			system, err := s.render(prompt.EventExtraction, prompt.Vars{"DATE": s.dateContext()})
			if err != nil {
				return err
			}
			r.Extraction, err = s.extraction.Extract(ctx, system, input)
			if err != nil {
				return err
			}
			s.logger.Info("Extraction complete",
				zap.String("description", r.Extraction.Description),
				zap.Bool("is_calendar_event", r.Extraction.IsCalendarEvent),
				zap.Float64("confidence", r.Extraction.ConfidenceScore))
			return nil
		}).
		Gate("calendar_event", func(r *ChainResult) workflow.Verdict {
			if !r.Extraction.IsCalendarEvent {
				return workflow.Fail("not a calendar event")
			}
			return workflow.Confident(r.Extraction.ConfidenceScore, s.threshold)
		}).
		Then("parse_details", func(ctx context.Context, r *ChainResult) error {
			system, err := s.render(prompt.EventDetails, prompt.Vars{"DATE": s.dateContext()})
			if err != nil {
				return err
			}
			details, err := s.details.Extract(ctx, system, r.Extraction.Description)
			if err != nil {
				return err
			}
			r.Details = &details
			s.logger.Info("Parsed event details",
				zap.String("name", details.Name),
				zap.String("date", details.Date),
				zap.Int("duration", details.Duration),
				zap.Strings("participants", details.Participants))
			return nil
		}).
		Then("confirm", func(ctx context.Context, r *ChainResult) error {
			system, err := s.render(prompt.EventConfirmation, prompt.Vars{"SIGNER": s.signer})
			if err != nil {
				return err
			}
			payload, err := json.Marshal(r.Details)
			if err != nil {
				return err
			}
			confirmation, err := s.confirmation.Extract(ctx, system, string(payload))
			if err != nil {
				return err
			}
			r.Confirmation = &confirmation
			return nil
		})

	report, err := chain.Run(ctx, res)
	if err != nil {
		return nil, err
	}
	res.Report = report
	return res, nil
}

// RouteResult is the outcome of the calendar router. Response is nil unless
// the request was handled.
type RouteResult struct {
	workflow.Report
	Classification RequestType `json:"classification"`
	Response       *Response   `json:"response,omitempty"`
}

// Route classifies the request as a new or modified event and handles it.
func (s *Service) Route(ctx context.Context, input string) (*RouteResult, error) {
	res := &RouteResult{}

	router := workflow.NewRouter[*Response](func(ctx context.Context, input string) (workflow.Classification, error) {
		system, err := s.render(prompt.RouteRequest, nil)
		if err != nil {
			return workflow.Classification{}, err
		}
		rt, err := s.requestType.Extract(ctx, system, input)
		if err != nil {
			return workflow.Classification{}, err
		}
		res.Classification = rt
		return workflow.Classification{
			Label:      rt.RequestType,
			Confidence: rt.ConfidenceScore,
			Input:      rt.Description,
		}, nil
	}, s.threshold, s.logger)

	router.Handle(NewEvent, s.handleNewEvent)
	router.Handle(ModifyEvent, s.handleModifyEvent)

	resp, report, err := router.Route(ctx, input)
	if err != nil {
		return nil, err
	}
	res.Report = report
	res.Response = resp
	return res, nil
}

func (s *Service) handleNewEvent(ctx context.Context, description string) (*Response, error) {
	system, err := s.render(prompt.NewEvent, nil)
	if err != nil {
		return nil, err
	}
	d, err := s.newEvent.Extract(ctx, system, description)
	if err != nil {
		return nil, err
	}
	s.logger.Info("New event details extracted", zap.String("name", d.Name))

	return &Response{
		Success: true,
		Message: fmt.Sprintf("Created a new event '%s' for %s with %s, expected to be of %d minutes.",
			d.Name, d.Date, strings.Join(d.Participants, ", "), d.Duration),
		CalendarLink: "calendar://new?event=" + url.QueryEscape(d.Name),
	}, nil
}

func (s *Service) handleModifyEvent(ctx context.Context, description string) (*Response, error) {
	system, err := s.render(prompt.ModifyEvent, nil)
	if err != nil {
		return nil, err
	}
	d, err := s.modifyEvent.Extract(ctx, system, description)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Modify event details extracted",
		zap.String("event", d.EventIdentifier),
		zap.Int("changes", len(d.Changes)))

	return &Response{
		Success:      true,
		Message:      fmt.Sprintf("Modified event '%s'", d.EventIdentifier),
		CalendarLink: "calendar://modify?event=" + url.QueryEscape(d.EventIdentifier),
	}, nil
}

// ValidationResult is the joined outcome of the calendar and security checks.
type ValidationResult struct {
	workflow.Validation
	Calendar  Validation    `json:"calendar"`
	Security  SecurityCheck `json:"security"`
	RiskFlags []string      `json:"risk_flags,omitempty"`
}

// Validate checks concurrently that input is a confident calendar request and
// that it is safe. Both checks must pass.
func (s *Service) Validate(ctx context.Context, input string) (*ValidationResult, error) {
	res := &ValidationResult{}

	calendarCheck := workflow.Check{Name: "calendar_request", Run: func(ctx context.Context) (workflow.Verdict, error) {
		system, err := s.render(prompt.ValidateCalendar, nil)
		if err != nil {
			return workflow.Verdict{}, err
		}
		v, err := s.validation.Extract(ctx, system, input)
		if err != nil {
			return workflow.Verdict{}, err
		}
		res.Calendar = v
		if !v.IsCalendarRequest {
			return workflow.Fail("not a calendar request"), nil
		}
		return workflow.Confident(v.ConfidenceScore, s.threshold), nil
	}}

	securityCheck := workflow.Check{Name: "security", Run: func(ctx context.Context) (workflow.Verdict, error) {
		system, err := s.render(prompt.SecurityCheck, nil)
		if err != nil {
			return workflow.Verdict{}, err
		}
		v, err := s.security.Extract(ctx, system, input)
		if err != nil {
			return workflow.Verdict{}, err
		}
		res.Security = v
		if !v.IsSafe {
			return workflow.Fail("unsafe input: %s", strings.Join(v.RiskFlags, ", ")), nil
		}
		return workflow.Pass(), nil
	}}

	validation, err := workflow.Validate(ctx, s.logger, calendarCheck, securityCheck)
	res.Validation = validation
	res.RiskFlags = res.Security.RiskFlags
	if err != nil {
		return res, err
	}

	if len(res.RiskFlags) > 0 {
		s.logger.Warn("Security flags", zap.Strings("flags", res.RiskFlags))
	}
	return res, nil
}

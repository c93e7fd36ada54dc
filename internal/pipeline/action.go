package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"entitymatch/internal"
	"entitymatch/internal/document"
)

// ActionOutcome reports what the executor did. Warnings carry wait expiries,
// which never fail an action that already ran.
type ActionOutcome struct {
	Performed bool
	Result    *internal.ActionResult
	Warnings  []string
}

type ActionRunner struct {
	log *zap.Logger
}

func NewActionRunner(log *zap.Logger) *ActionRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionRunner{log: log}
}

// Execute runs spec against target. A nil target or kind none is a no-op.
func (a *ActionRunner) Execute(ctx context.Context, doc document.Document, target document.Element, spec internal.ActionSpec) ActionOutcome {
	if target == nil || spec.Kind == "" || spec.Kind == internal.ActionNone {
		return ActionOutcome{}
	}

	opCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	el, err := a.resolve(opCtx, target, spec.Selector)
	if err != nil {
		return failed(spec.Kind, err)
	}

	switch spec.Kind {
	case internal.ActionClick:
		if err := el.Click(opCtx); err != nil {
			return failed(spec.Kind, fmt.Errorf("%w: click: %w", ErrActionExecution, err))
		}
		out := ActionOutcome{Performed: true, Result: &internal.ActionResult{Kind: spec.Kind, Success: true}}
		if spec.WaitAfter {
			if w := a.wait(ctx, doc, spec); w != "" {
				out.Warnings = append(out.Warnings, w)
			}
		}
		return out
	case internal.ActionExtract:
		value, err := a.extract(opCtx, el, spec.Attribute)
		if err != nil {
			return failed(spec.Kind, err)
		}
		return ActionOutcome{Performed: true, Result: &internal.ActionResult{Kind: spec.Kind, Success: true, Value: &value}}
	default:
		return failed(spec.Kind, fmt.Errorf("%w: unknown action %q", ErrActionExecution, spec.Kind))
	}
}

func (a *ActionRunner) resolve(ctx context.Context, target document.Element, selector string) (document.Element, error) {
	if selector == "" {
		return target, nil
	}
	els, err := target.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrActionElementNotFound, selector, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrActionElementNotFound, selector)
	}
	return els[0], nil
}

func (a *ActionRunner) extract(ctx context.Context, el document.Element, attribute string) (string, error) {
	if attribute != "" {
		v, ok, err := el.Attribute(ctx, attribute)
		if err != nil {
			return "", fmt.Errorf("%w: attribute %q: %w", ErrActionExecution, attribute, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: attribute %q not present", ErrActionElementNotFound, attribute)
		}
		return v, nil
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: text: %w", ErrActionExecution, err)
	}
	return strings.TrimSpace(text), nil
}

// wait performs exactly one wait: a follow-up selector, a fixed delay, or
// the page-settle signal. It returns a warning when the wait did not finish.
func (a *ActionRunner) wait(ctx context.Context, doc document.Document, spec internal.ActionSpec) string {
	switch {
	case spec.WaitSelector != "":
		found, err := doc.WaitForSelector(ctx, spec.WaitSelector, spec.Timeout)
		if err != nil {
			a.log.Warn("wait for selector failed", zap.String("selector", spec.WaitSelector), zap.Error(err))
			return fmt.Sprintf("wait for %q failed: %v", spec.WaitSelector, err)
		}
		if !found {
			return fmt.Sprintf("wait for %q timed out after %s", spec.WaitSelector, spec.Timeout)
		}
	case spec.WaitTime > 0:
		if err := doc.Sleep(ctx, spec.WaitTime); err != nil {
			return fmt.Sprintf("wait %s interrupted: %v", spec.WaitTime, err)
		}
	default:
		err := doc.WaitForSettle(ctx, spec.Timeout)
		switch {
		case err == nil, errors.Is(err, document.ErrUnsupported):
		case errors.Is(err, document.ErrTimeout):
			return fmt.Sprintf("page did not settle within %s", spec.Timeout)
		default:
			a.log.Warn("wait for settle failed", zap.Error(err))
			return fmt.Sprintf("wait for settle failed: %v", err)
		}
	}
	return ""
}

func failed(kind internal.ActionKind, err error) ActionOutcome {
	return ActionOutcome{
		Result: &internal.ActionResult{
			Kind:      kind,
			Success:   false,
			Error:     err.Error(),
			ErrorKind: kindOf(err),
		},
	}
}

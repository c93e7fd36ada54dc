package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"entitymatch/internal"
	"entitymatch/internal/document"
)

const defaultMaxItems = 100

// Located is the Locator's output: the container outcome and the candidate
// handles in document order.
type Located struct {
	ContainerFound bool
	Items          []document.Element
	Strategy       string
}

// DOMLocator resolves the results container and segments it into items.
type DOMLocator struct {
	strategies []Strategy
	log        *zap.Logger
}

func NewLocator(log *zap.Logger, strategies ...Strategy) *DOMLocator {
	if log == nil {
		log = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &DOMLocator{strategies: strategies, log: log}
}

func (l *DOMLocator) Locate(ctx context.Context, doc document.Document, spec internal.LocateSpec) (Located, error) {
	container, err := l.container(ctx, doc, spec)
	if err != nil {
		return Located{}, err
	}
	if container == nil {
		return Located{}, fmt.Errorf("%w: %q", ErrContainerNotFound, spec.ContainerSelector)
	}

	items, strategy, err := l.items(ctx, doc, container, spec)
	if err != nil {
		return Located{ContainerFound: true}, err
	}

	limit := spec.MaxItems
	if limit <= 0 {
		limit = defaultMaxItems
	}
	if len(items) > limit {
		l.log.Debug("capping located items", zap.Int("found", len(items)), zap.Int("max", limit))
		items = items[:limit]
	}
	return Located{ContainerFound: true, Items: items, Strategy: strategy}, nil
}

func (l *DOMLocator) container(ctx context.Context, doc document.Document, spec internal.LocateSpec) (document.Element, error) {
	if spec.WaitForSelectors {
		found, err := doc.WaitForSelector(ctx, spec.ContainerSelector, spec.Timeout)
		if err != nil {
			if isContextErr(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("wait for container: %w", err)
		}
		if !found {
			return nil, nil
		}
	}

	el, err := document.First(ctx, doc, spec.ContainerSelector)
	if err != nil {
		if isContextErr(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query container: %w", err)
	}
	return el, nil
}

func (l *DOMLocator) items(ctx context.Context, doc document.Document, container document.Element, spec internal.LocateSpec) ([]document.Element, string, error) {
	if spec.ItemSelector != "" {
		items, err := container.Find(ctx, spec.ItemSelector)
		if err != nil {
			return nil, "", fmt.Errorf("query items: %w", err)
		}
		if len(items) > 0 {
			return items, StrategyExplicit, nil
		}

		items, err = l.itemsInAllContainers(ctx, doc, spec)
		if err != nil {
			return nil, "", err
		}
		return items, StrategyExplicitDocument, nil
	}

	if !spec.AutoDetect {
		items, err := container.Children(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("read children: %w", err)
		}
		return items, StrategyDirectChildren, nil
	}

	for _, s := range l.strategies {
		items, err := s.Gather(ctx, container)
		if err != nil {
			return nil, "", fmt.Errorf("auto-detect %s: %w", s.Name, err)
		}
		if s.Accept(items) {
			l.log.Debug("auto-detect accepted", zap.String("strategy", s.Name), zap.Int("items", len(items)))
			return items, s.Name, nil
		}
		l.log.Debug("auto-detect rejected", zap.String("strategy", s.Name), zap.Int("items", len(items)))
	}
	return nil, "", nil
}

// itemsInAllContainers searches the item selector inside every element the
// container selector matches, in document order. Either selector may be a
// comma group.
func (l *DOMLocator) itemsInAllContainers(ctx context.Context, doc document.Document, spec internal.LocateSpec) ([]document.Element, error) {
	containers, err := doc.Query(ctx, spec.ContainerSelector)
	if err != nil {
		return nil, fmt.Errorf("query containers: %w", err)
	}
	var out []document.Element
	for _, c := range containers {
		found, err := c.Find(ctx, spec.ItemSelector)
		if err != nil {
			return nil, fmt.Errorf("query items in document: %w", err)
		}
		out = append(out, found...)
	}
	l.log.Debug("item selector retried across containers", zap.Int("containers", len(containers)), zap.Int("items", len(out)))
	return out, nil
}

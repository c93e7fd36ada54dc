package pipeline

import (
	"context"
	"strings"

	"entitymatch/internal/document"
)

const (
	StrategyExplicit         = "explicit"
	StrategyExplicitDocument = "explicit-document"
	StrategyDirectChildren   = "direct-children"
	StrategyChildren         = "children"
	StrategyListItems        = "list-items"
	StrategyTableRows        = "table-rows"
	StrategyRepeatedClass    = "repeated-class"
	StrategyBroad            = "broad"
)

const (
	minChildItems = 2
	maxChildItems = 100

	broadSelector = "article, section, div[class], li, tr"

	repeatedClassDepth = 3
	repeatedClassScan  = 500
)

// Strategy is one auto-detect heuristic. Gather reads a candidate set from
// the container; Accept judges that set without touching the document.
type Strategy struct {
	Name   string
	Gather func(ctx context.Context, container document.Element) ([]document.Element, error)
	Accept func(items []document.Element) bool
}

// DefaultStrategies returns the auto-detect order: direct children, list
// items, table rows, siblings sharing a class, then a broad fallback.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyChildren, Gather: gatherChildren, Accept: acceptChildCount},
		{Name: StrategyListItems, Gather: gatherSelector("li"), Accept: acceptNonEmpty},
		{Name: StrategyTableRows, Gather: gatherTableRows, Accept: acceptNonEmpty},
		{Name: StrategyRepeatedClass, Gather: gatherRepeatedClass, Accept: acceptRepeated},
		{Name: StrategyBroad, Gather: gatherSelector(broadSelector), Accept: acceptNonEmpty},
	}
}

func acceptChildCount(items []document.Element) bool {
	return len(items) >= minChildItems && len(items) <= maxChildItems
}

func acceptNonEmpty(items []document.Element) bool {
	return len(items) > 0
}

func acceptRepeated(items []document.Element) bool {
	return len(items) >= 2
}

func gatherChildren(ctx context.Context, container document.Element) ([]document.Element, error) {
	return container.Children(ctx)
}

func gatherSelector(selector string) func(context.Context, document.Element) ([]document.Element, error) {
	return func(ctx context.Context, container document.Element) ([]document.Element, error) {
		return container.Find(ctx, selector)
	}
}

// gatherTableRows keeps rows with at least one data cell, skipping header rows.
func gatherTableRows(ctx context.Context, container document.Element) ([]document.Element, error) {
	rows, err := container.Find(ctx, "tr")
	if err != nil {
		return nil, err
	}
	out := make([]document.Element, 0, len(rows))
	for _, row := range rows {
		cells, err := row.Find(ctx, "td")
		if err != nil {
			return nil, err
		}
		if len(cells) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

// gatherRepeatedClass walks a few levels below the container and returns the
// largest sibling group sharing one class token. Equal groups resolve to the
// shallowest, earliest one.
func gatherRepeatedClass(ctx context.Context, container document.Element) ([]document.Element, error) {
	level := []document.Element{container}
	var best []document.Element
	scanned := 0

	for depth := 0; depth < repeatedClassDepth && len(level) > 0; depth++ {
		var next []document.Element
		for _, parent := range level {
			kids, err := parent.Children(ctx)
			if err != nil {
				return nil, err
			}
			classes := make([][]string, len(kids))
			for i, kid := range kids {
				v, _, err := kid.Attribute(ctx, "class")
				if err != nil {
					return nil, err
				}
				classes[i] = strings.Fields(v)
			}
			if group := repeatedClassGroup(classes); len(group) > len(best) {
				best = make([]document.Element, 0, len(group))
				for _, idx := range group {
					best = append(best, kids[idx])
				}
			}

			scanned += len(kids)
			next = append(next, kids...)
			if scanned >= repeatedClassScan {
				return best, nil
			}
		}
		level = next
	}
	return best, nil
}

// repeatedClassGroup returns the indices of the siblings carrying the most
// frequent class token, or nil when no token appears twice. A token counts
// once per sibling; ties go to the token seen first.
func repeatedClassGroup(classes [][]string) []int {
	counts := map[string]int{}
	var order []string
	for _, tokens := range classes {
		seen := map[string]struct{}{}
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := counts[tok]; !ok {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	bestTok := ""
	bestCount := 1
	for _, tok := range order {
		if counts[tok] > bestCount {
			bestTok = tok
			bestCount = counts[tok]
		}
	}
	if bestTok == "" {
		return nil
	}

	out := make([]int, 0, bestCount)
	for i, tokens := range classes {
		for _, tok := range tokens {
			if tok == bestTok {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

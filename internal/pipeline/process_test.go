package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitymatch/internal"
	"entitymatch/internal/config"
	"entitymatch/internal/document"
	"entitymatch/internal/util"
)

func basePlan(container string, src internal.SourceEntity) internal.Plan {
	return internal.Plan{
		Source: src,
		Locate: internal.LocateSpec{
			ContainerSelector: container,
			AutoDetect:        true,
			Timeout:           time.Second,
			MaxItems:          100,
		},
		Select: internal.SelectSpec{Threshold: 0.6, Mode: internal.ModeBest},
		Action: internal.ActionSpec{Kind: internal.ActionNone, Timeout: time.Second},
	}
}

func TestRunSmartBestMatch(t *testing.T) {
	doc := parseHTML(t, `<ul id="r"><li>Acme Corporation</li><li>Globex Inc</li></ul>`)

	res := NewMatcher().Run(context.Background(), doc, basePlan("#r", source("name", "Acme Corp")))

	require.True(t, res.Success, res.Error)
	assert.True(t, res.ContainerFound)
	assert.Equal(t, 2, res.ItemsFound)
	assert.Equal(t, StrategyChildren, res.Strategy)
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 0, res.SelectedMatch.Index)
	assert.GreaterOrEqual(t, res.SelectedMatch.Aggregate, 0.7)
	assert.Equal(t, []int{0}, indexes(res.Matches))
	assert.False(t, res.ActionPerformed)
	assert.Nil(t, res.ActionResult)
	assert.NotEmpty(t, res.InvocationID)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 1, res.Rejected[0].Index)
}

func TestRunRequiredFieldDropsCandidate(t *testing.T) {
	doc := parseHTML(t, cardsHTML)
	plan := basePlan("#results", source("title", "Initech LLC"))
	plan.Locate.ItemSelector = ".card"
	plan.Fields = []internal.FieldSpec{
		{Name: "title", Selector: ".title", Weight: 1},
		{Name: "price", Selector: ".price", Weight: 1, Required: true, Format: internal.FormatNumber},
	}
	plan.Select = internal.SelectSpec{Threshold: 0, Mode: internal.ModeAll}

	res := NewMatcher().Run(context.Background(), doc, plan)

	require.True(t, res.Success)
	assert.Equal(t, 3, res.ItemsFound)
	assert.ElementsMatch(t, []int{0, 1}, indexes(res.Matches))
	require.NotEmpty(t, res.Rejected)
	assert.Equal(t, 2, res.Rejected[0].Index)
	assert.Equal(t, internal.KindRequiredFieldMissing, res.Rejected[0].Kind)
}

func TestRunContainerNotFound(t *testing.T) {
	doc := parseHTML(t, cardsHTML)

	var res internal.Result
	assert.NotPanics(t, func() {
		res = NewMatcher().Run(context.Background(), doc, basePlan("#nope", source("name", "Acme")))
	})

	assert.False(t, res.Success)
	assert.False(t, res.ContainerFound)
	assert.Equal(t, 0, res.ItemsFound)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, internal.KindContainerNotFound, res.ErrorKind)
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
}

func TestRunNoItems(t *testing.T) {
	doc := parseHTML(t, `<div id="r"></div>`)
	res := NewMatcher().Run(context.Background(), doc, basePlan("#r", source("name", "Acme")))

	assert.True(t, res.Success)
	assert.True(t, res.ContainerFound)
	assert.Equal(t, 0, res.ItemsFound)
	assert.Equal(t, internal.KindItemsNotFound, res.ErrorKind)
	assert.Empty(t, res.Matches)
}

func TestRunIsDeterministic(t *testing.T) {
	doc := parseHTML(t, `<ul id="r">
		<li>Acme Widgets</li><li>Acme Widgets Deluxe</li><li>Widgets by Acme</li><li>Acme Widgets</li>
	</ul>`)
	plan := basePlan("#r", source("name", "Acme Widgets"))
	plan.Select = internal.SelectSpec{Threshold: 0.1, Mode: internal.ModeAll}
	m := NewMatcher()

	first := m.Run(context.Background(), doc, plan)
	require.True(t, first.Success)
	assert.Equal(t, []int{0, 2, 3, 1}, indexes(first.Matches))
	for i := 0; i < 10; i++ {
		again := m.Run(context.Background(), doc, plan)
		assert.Equal(t, first.Matches, again.Matches)
		assert.Equal(t, first.SelectedMatch, again.SelectedMatch)
	}
}

func TestRunExtractAction(t *testing.T) {
	doc := parseHTML(t, cardsHTML)
	plan := basePlan("#results", source("title", "Globex Inc"))
	plan.Fields = []internal.FieldSpec{{Name: "title", Selector: ".title", Weight: 1}}
	plan.Action = internal.ActionSpec{Kind: internal.ActionExtract, Selector: ".link", Attribute: "href", Timeout: time.Second}

	res := NewMatcher().Run(context.Background(), doc, plan)

	require.True(t, res.Success)
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 1, res.SelectedMatch.Index)
	assert.Equal(t, "globex inc", res.SelectedMatch.Fields["title"])
	assert.True(t, res.ActionPerformed)
	require.NotNil(t, res.ActionResult)
	require.NotNil(t, res.ActionResult.Value)
	assert.Equal(t, "/globex", *res.ActionResult.Value)
}

func TestRunActionFailureKeepsMatches(t *testing.T) {
	doc := parseHTML(t, cardsHTML)
	plan := basePlan("#results", source("title", "Globex Inc"))
	plan.Fields = []internal.FieldSpec{{Name: "title", Selector: ".title", Weight: 1}}
	plan.Action = internal.ActionSpec{Kind: internal.ActionClick, Selector: ".add-to-cart", Timeout: time.Second}

	res := NewMatcher().Run(context.Background(), doc, plan)

	assert.True(t, res.Success)
	require.NotNil(t, res.SelectedMatch)
	assert.False(t, res.ActionPerformed)
	require.NotNil(t, res.ActionResult)
	assert.Equal(t, internal.KindActionElementNotFound, res.ActionResult.ErrorKind)
	assert.Empty(t, doc.Clicks())
}

func TestRunMustMatchGate(t *testing.T) {
	doc := parseHTML(t, `<ul id="r">
		<li><span class="n">Acme Corp</span><span class="sku">X-1</span></li>
		<li><span class="n">Acme Corporation</span><span class="sku">AB-12</span></li>
	</ul>`)
	plan := basePlan("#r", source("name", "Acme Corp", "sku", "ab12"))
	plan.Fields = []internal.FieldSpec{
		{Name: "name", Selector: ".n", Weight: 1},
		{Name: "sku", Selector: ".sku", Weight: 1},
	}
	plan.Comparisons = []internal.FieldComparisonSpec{
		{Field: "name", Algorithm: internal.AlgorithmSmart, Weight: 5},
		{Field: "sku", Algorithm: internal.AlgorithmExact, Weight: 1, MustMatch: true, Threshold: 1},
	}

	res := NewMatcher().Run(context.Background(), doc, plan)

	require.True(t, res.Success)
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 1, res.SelectedMatch.Index)
	assert.Equal(t, []int{1}, indexes(res.Matches))
}

func TestRunRecoversPanics(t *testing.T) {
	var res internal.Result
	assert.NotPanics(t, func() {
		res = NewMatcher().Run(context.Background(), panicDoc{}, basePlan("#r", source("name", "Acme")))
	})
	assert.False(t, res.Success)
	assert.Equal(t, internal.KindInternal, res.ErrorKind)
	assert.Contains(t, res.Error, "query exploded")
}

func TestRunRejectsMissingInputs(t *testing.T) {
	res := NewMatcher().Run(context.Background(), nil, basePlan("#r", source("name", "Acme")))
	assert.False(t, res.Success)
	assert.Equal(t, internal.KindInvalidOptions, res.ErrorKind)

	doc := parseHTML(t, cardsHTML)
	res = NewMatcher().Run(context.Background(), doc, basePlan("", source("name", "Acme")))
	assert.False(t, res.Success)
	assert.Equal(t, internal.KindInvalidOptions, res.ErrorKind)

	res = NewMatcher().Run(context.Background(), doc, basePlan("div[", source("name", "Acme")))
	assert.False(t, res.Success)
	assert.Equal(t, internal.KindInvalidOptions, res.ErrorKind)
}

func TestRunOptions(t *testing.T) {
	doc := parseHTML(t, cardsHTML)
	opts := config.Options{
		SourceEntity:    map[string]*string{"title": util.StringPtr("Acme Corporation"), "extra": util.StringPtr("x")},
		ResultsSelector: "#results",
		Fields:          []config.FieldOptions{{Name: "title", Selector: ".title"}},
	}

	res := NewMatcher().RunOptions(context.Background(), doc, opts, config.DefaultDefaults())
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.SelectedMatch)
	assert.Equal(t, 0, res.SelectedMatch.Index)
	assert.Equal(t, 1.0, res.SelectedMatch.Aggregate)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "extra")

	opts.ResultsSelector = ""
	res = NewMatcher().RunOptions(context.Background(), doc, opts, config.DefaultDefaults())
	assert.False(t, res.Success)
	assert.Equal(t, internal.KindInvalidOptions, res.ErrorKind)
}

type failingLocator struct{ err error }

func (f failingLocator) Locate(context.Context, document.Document, internal.LocateSpec) (Located, error) {
	return Located{ContainerFound: true}, f.err
}

func TestRunUsesInjectedStages(t *testing.T) {
	doc := parseHTML(t, cardsHTML)
	m := NewMatcher(WithLocator(failingLocator{err: errors.New("socket closed")}))

	res := m.Run(context.Background(), doc, basePlan("#results", source("name", "Acme")))
	assert.False(t, res.Success)
	assert.True(t, res.ContainerFound)
	assert.Equal(t, internal.KindInternal, res.ErrorKind)
	assert.Contains(t, res.Error, "socket closed")
}

func TestInspect(t *testing.T) {
	doc := parseHTML(t, `<ul id="r"><li>Acme Corporation</li><li>Globex Inc</li></ul>`)
	m := NewMatcher()

	plan, located, extraction, err := m.Inspect(context.Background(), doc, basePlan("#r", source("name", "Acme Corp")))
	require.NoError(t, err)
	assert.Equal(t, StrategyChildren, located.Strategy)
	require.Len(t, plan.Fields, 1)
	assert.Equal(t, "name", plan.Fields[0].Name)
	require.Len(t, extraction.Candidates, 2)
	assert.Equal(t, "Globex Inc", extraction.Candidates[1].Fields["name"].Original)

	_, _, _, err = m.Inspect(context.Background(), doc, basePlan("#missing", source("name", "Acme")))
	assert.ErrorIs(t, err, ErrContainerNotFound)

	_, _, _, err = m.Inspect(context.Background(), nil, basePlan("#r", source("name", "Acme")))
	assert.ErrorIs(t, err, config.ErrInvalidOptions)
}

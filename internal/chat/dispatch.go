package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/newswise/backend/internal/session"
	"github.com/newswise/backend/pkg/logger"
)

type handlerFunc func(ctx context.Context) *Response

// matcher routes a query to a handler. Matchers are evaluated in a
// fixed order; the first one to claim the query wins.
type matcher interface {
	tryMatch(query string, state *session.State) (handlerFunc, bool)
}

var comparisonKeywords = []string{
	"compare", "vs", "versus", "difference between", "which is better",
}

var entityTypeKeywords = []string{"stock", "mutual fund", "fund", "etf"}

// Template patterns for the specific-question handlers, matched
// against the lowercased query.
var (
	stockMovementRe = regexp.MustCompile(`why did ([a-z0-9\s]+) (up|down|rise|fall|jump|drop|surge|plunge|increase|decrease) (today|yesterday|this week|last week|this month)`)
	marketEventRe   = regexp.MustCompile(`what happened to ([a-z0-9\s]+) (today|yesterday|this week|last week|this month)`)
	macroNewsRe     = regexp.MustCompile(`(macro|economic|global) news (impact|affecting|hitting) ([a-z0-9\s\-]+) (funds|stocks|etfs|sector)`)
	quarterlyRe     = regexp.MustCompile(`(what does|how was) the last quarter (for|say for|results for) ([a-z0-9\s]+)`)
)

type comparisonMatcher struct{ e *Engine }

func (m *comparisonMatcher) tryMatch(query string, state *session.State) (handlerFunc, bool) {
	queryLower := strings.ToLower(query)

	triggered := strings.Contains(" "+queryLower+" ", " and ")
	if !triggered {
		for _, kw := range comparisonKeywords {
			if strings.Contains(queryLower, kw) {
				triggered = true
				break
			}
		}
	}
	if !triggered {
		return nil, false
	}

	entities := m.e.extractor.Extract(query)
	if len(entities) < 2 {
		return nil, false
	}

	logger.Info("Comparison request detected", zap.Strings("entities", entities))
	return func(ctx context.Context) *Response {
		resp := m.e.runSafely(IntentComparison, func() *Response {
			return m.e.compare(entities)
		})
		state.Reset()
		resp.Intent = IntentComparison
		return resp
	}, true
}

type clarificationMatcher struct{ e *Engine }

func (m *clarificationMatcher) tryMatch(query string, state *session.State) (handlerFunc, bool) {
	if state.Phase != session.PhaseAwaitingEntityType || state.Entity == "" {
		return nil, false
	}

	queryLower := strings.ToLower(query)
	var specified string
	for _, et := range entityTypeKeywords {
		if strings.Contains(queryLower, et) {
			specified = et
			break
		}
	}

	if specified == "" {
		// No type keyword: re-issue the prompt, keep waiting.
		return func(ctx context.Context) *Response {
			resp := newResponse(
				fmt.Sprintf("Would you like information about %s as a stock, mutual fund, or ETF?", state.Entity),
				0.9,
			)
			resp.IsPrompt = true
			resp.Intent = IntentClarification
			return resp
		}, true
	}

	entityType := specified
	if entityType == "mutual fund" {
		entityType = "fund"
	}

	entity := state.Entity
	return func(ctx context.Context) *Response {
		logger.Info("Entity type specified",
			zap.String("entity", entity),
			zap.String("type", entityType),
		)
		resp := m.e.runSafely(IntentClarification, func() *Response {
			return m.e.entityData(entity, entityType)
		})
		state.Reset()
		resp.Intent = IntentClarification
		return resp
	}, true
}

type entityOnlyMatcher struct{ e *Engine }

func (m *entityOnlyMatcher) tryMatch(query string, state *session.State) (handlerFunc, bool) {
	name, ok := m.e.extractor.IsEntityOnly(query)
	if !ok {
		return nil, false
	}

	return func(ctx context.Context) *Response {
		logger.Info("Entity-only query detected", zap.String("entity", name))
		state.Entity = name
		state.Phase = session.PhaseAwaitingEntityType

		resp := newResponse(
			fmt.Sprintf("I found information about %s. Would you like details about it as a stock, mutual fund, or ETF?", name),
			0.9,
		)
		resp.IsPrompt = true
		resp.Intent = IntentDisambiguation
		return resp
	}, true
}

type templateMatcher struct{ e *Engine }

func (m *templateMatcher) tryMatch(query string, state *session.State) (handlerFunc, bool) {
	queryLower := strings.ToLower(query)

	if g := stockMovementRe.FindStringSubmatch(queryLower); g != nil {
		company, direction, period := strings.TrimSpace(g[1]), g[2], g[3]
		return m.wrap(state, IntentStockMovement, func(ctx context.Context) *Response {
			return m.e.handleStockMovement(ctx, company, direction, period)
		}), true
	}

	if g := marketEventRe.FindStringSubmatch(queryLower); g != nil {
		entity, period := strings.TrimSpace(g[1]), g[2]
		return m.wrap(state, IntentMarketEvent, func(ctx context.Context) *Response {
			return m.e.handleMarketEvent(ctx, entity, period)
		}), true
	}

	if g := macroNewsRe.FindStringSubmatch(queryLower); g != nil {
		newsType, entity, assetType := g[1], strings.TrimSpace(g[3]), g[4]
		return m.wrap(state, IntentMacroNews, func(ctx context.Context) *Response {
			return m.e.handleMacroNews(newsType, entity, assetType)
		}), true
	}

	if g := quarterlyRe.FindStringSubmatch(queryLower); g != nil {
		company := strings.TrimSpace(g[3])
		return m.wrap(state, IntentQuarterlyResults, func(ctx context.Context) *Response {
			return m.e.handleQuarterlyResults(ctx, company)
		}), true
	}

	return nil, false
}

func (m *templateMatcher) wrap(state *session.State, intent string, fn func(ctx context.Context) *Response) handlerFunc {
	return func(ctx context.Context) *Response {
		resp := m.e.runSafely(intent, func() *Response { return fn(ctx) })
		state.Reset()
		resp.Intent = intent
		return resp
	}
}

type genericMatcher struct{ e *Engine }

func (m *genericMatcher) tryMatch(query string, state *session.State) (handlerFunc, bool) {
	return func(ctx context.Context) *Response {
		resp := m.e.runSafely(IntentGeneric, func() *Response {
			return m.e.handleGeneric(ctx, query)
		})
		state.Reset()
		resp.Intent = IntentGeneric
		return resp
	}, true
}

// runSafely is the branch-boundary guard: a handler panic becomes a
// fixed apology at confidence 0.5 instead of escaping.
func (e *Engine) runSafely(intent string, fn func() *Response) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler panicked",
				zap.String("intent", intent),
				zap.Any("panic", r),
			)
			resp = newResponse("I couldn't process your specific question. Please try asking in a different way.", 0.5)
		}
	}()
	return fn()
}
